package upload

import (
	"github.com/temirov/layeraudit/internal/gis"
	"github.com/temirov/layeraudit/internal/records"
	"github.com/temirov/layeraudit/internal/timeutil"
)

const (
	reportMonthLayoutConstant = "2006-01"
)

// Preparer renders records in the wire form the audit table accepts: dates as epoch
// milliseconds, report month as "YYYY-MM", flags as 0/1 and empty text as null.
type Preparer struct {
	converter    *timeutil.Converter
	capabilities records.SchemaCapabilities
}

// NewPreparer constructs a Preparer for the detected destination capabilities.
func NewPreparer(converter *timeutil.Converter, capabilities records.SchemaCapabilities) *Preparer {
	return &Preparer{converter: converter, capabilities: capabilities}
}

// PrepareAll converts every record in order.
func (preparer *Preparer) PrepareAll(layerRecords []records.LayerRecord) []gis.Row {
	rows := make([]gis.Row, 0, len(layerRecords))
	for _, record := range layerRecords {
		rows = append(rows, preparer.Prepare(record))
	}
	return rows
}

// Prepare converts one record; optional attributes appear only when the destination declares them.
func (preparer *Preparer) Prepare(record records.LayerRecord) gis.Row {
	row := gis.Row{
		records.FieldPortal:          record.EnvironmentName,
		records.FieldLayerName:       record.LayerName,
		records.FieldItemID:          record.ItemID,
		records.FieldFiscalYear:      record.FiscalYear,
		records.FieldLastEditedUser:  nullableText(record.LastEditedUser),
		records.FieldCreatedUser:     nullableText(record.CreatedUser),
		records.FieldItemCreated:     preparer.epochOrNull(record.ItemCreated),
		records.FieldItemUpdated:     preparer.epochOrNull(record.ItemUpdated),
		records.FieldDataUpdated:     preparer.epochOrNull(record.DataUpdated),
		records.FieldSchemaUpdated:   preparer.epochOrNull(record.SchemaUpdated),
		records.FieldReportMonth:     reportMonth(record),
		records.FieldTotalFeatures:   record.TotalFeatures,
		records.FieldIsAuthoritative: flag(record.IsAuthoritative),
		records.FieldRunTimestamp:    record.RunTimestamp,
		records.FieldRunLabel:        record.RunLabel,
		records.FieldRunID:           record.RunID,
		records.FieldTimeZone:        record.TimeZone,
	}
	if preparer.capabilities.Owner {
		row[records.FieldOwner] = record.Owner
	}
	if preparer.capabilities.SubLayerName {
		row[records.FieldSubLayerName] = record.SubLayerName
	}
	if preparer.capabilities.SubLayerID {
		row[records.FieldSubLayerID] = int64(record.SubLayerID)
	}
	if preparer.capabilities.DeltaFeatures {
		row[records.FieldDeltaFeatures] = record.Delta()
	}
	if preparer.capabilities.ItemURL {
		row[records.FieldItemURL] = nullableText(record.ItemURL)
	}
	return row
}

func (preparer *Preparer) epochOrNull(value any) any {
	epochMilliseconds, converted := preparer.converter.ToEpochMillis(value)
	if !converted {
		return nil
	}
	return epochMilliseconds
}

func reportMonth(record records.LayerRecord) any {
	if record.ReportMonth.IsZero() {
		return nil
	}
	return record.ReportMonth.Format(reportMonthLayoutConstant)
}

func nullableText(value string) any {
	if len(value) == 0 {
		return nil
	}
	return value
}

func flag(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
