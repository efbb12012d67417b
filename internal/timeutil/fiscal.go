package timeutil

import (
	"fmt"
	"time"
)

const (
	fiscalYearStartMonthConstant    = time.October
	fiscalYearLabelTemplateConstant = "FY%d"
	reportMonthLayoutConstant       = "2006-01"
)

// FiscalYearLabel labels the fiscal year of instant using the instant's own zone.
// October through December belong to the following fiscal year.
func FiscalYearLabel(instant time.Time) string {
	shortYear := instant.Year() % 100
	if instant.Month() >= fiscalYearStartMonthConstant {
		shortYear++
	}
	return fmt.Sprintf(fiscalYearLabelTemplateConstant, shortYear)
}

// ReportMonthLabel renders a report month as YYYY-MM.
func ReportMonthLabel(instant time.Time) string {
	return instant.Format(reportMonthLayoutConstant)
}
