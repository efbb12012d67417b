package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/temirov/layeraudit/internal/gis"
)

const (
	// DefaultCacheSize bounds the number of memoized epoch conversions.
	DefaultCacheSize                       = 4096
	timeZoneLoadErrorTemplateConstant      = "unable to load time zone %q: %w"
	cacheCreationErrorTemplateConstant     = "unable to create conversion cache: %w"
	nilLocationErrorMessageConstant        = "time zone location must be provided"
	maximumEpochMillisecondsConstant int64 = 253402300799999
	minimumEpochMillisecondsConstant int64 = -62135596800000
	naiveDateTimeLayoutConstant            = "2006-01-02 15:04:05"
	naiveDateTimeTLayoutConstant           = "2006-01-02T15:04:05"
	naiveDateTimeFractionLayoutConstant    = "2006-01-02 15:04:05.999999999"
	naiveDateLayoutConstant                = "2006-01-02"
)

var naiveLayouts = []string{
	naiveDateTimeLayoutConstant,
	naiveDateTimeTLayoutConstant,
	naiveDateTimeFractionLayoutConstant,
	naiveDateLayoutConstant,
}

// NowProvider returns the current instant.
type NowProvider func() time.Time

// Converter performs zone-aware conversions for one configured location.
type Converter struct {
	location    *time.Location
	cache       *lru.Cache[int64, time.Time]
	nowProvider NowProvider
}

// NewConverter loads the named zone and builds a memoizing converter for it.
func NewConverter(timeZoneName string, cacheSize int) (*Converter, error) {
	location, loadError := time.LoadLocation(strings.TrimSpace(timeZoneName))
	if loadError != nil {
		return nil, fmt.Errorf(timeZoneLoadErrorTemplateConstant, timeZoneName, loadError)
	}
	return NewConverterForLocation(location, cacheSize)
}

// NewConverterForLocation builds a memoizing converter for an already loaded location.
func NewConverterForLocation(location *time.Location, cacheSize int) (*Converter, error) {
	if location == nil {
		return nil, errors.New(nilLocationErrorMessageConstant)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, cacheError := lru.New[int64, time.Time](cacheSize)
	if cacheError != nil {
		return nil, fmt.Errorf(cacheCreationErrorTemplateConstant, cacheError)
	}
	return &Converter{location: location, cache: cache, nowProvider: time.Now}, nil
}

// WithNowProvider returns a copy of the converter that reads "now" from provider.
func (converter *Converter) WithNowProvider(provider NowProvider) *Converter {
	duplicated := *converter
	if provider == nil {
		provider = time.Now
	}
	duplicated.nowProvider = provider
	return &duplicated
}

// Location returns the configured local zone.
func (converter *Converter) Location() *time.Location {
	return converter.location
}

// Now returns the current instant in the configured zone.
func (converter *Converter) Now() time.Time {
	return converter.nowProvider().In(converter.location)
}

// MillisToLocal interprets milliseconds as a UTC epoch and returns the instant in the configured zone.
// Zero and out-of-range inputs report false.
func (converter *Converter) MillisToLocal(milliseconds int64) (time.Time, bool) {
	if milliseconds == 0 || milliseconds > maximumEpochMillisecondsConstant || milliseconds < minimumEpochMillisecondsConstant {
		return time.Time{}, false
	}
	if cachedInstant, cached := converter.cache.Get(milliseconds); cached {
		return cachedInstant, true
	}
	localInstant := time.UnixMilli(milliseconds).In(converter.location)
	converter.cache.Add(milliseconds, localInstant)
	return localInstant, true
}

// MillisToLocalPointer is MillisToLocal for nullable record attributes.
func (converter *Converter) MillisToLocalPointer(milliseconds int64) *time.Time {
	localInstant, converted := converter.MillisToLocal(milliseconds)
	if !converted {
		return nil
	}
	return &localInstant
}

// FiscalYear labels the fiscal year containing instant; fiscal years start in October.
// A zero instant means now.
func (converter *Converter) FiscalYear(instant time.Time) string {
	if instant.IsZero() {
		instant = converter.nowProvider()
	}
	return FiscalYearLabel(instant.In(converter.location))
}

// MonthFloor truncates instant to the first instant of its month in the configured zone.
// A zero instant means now.
func (converter *Converter) MonthFloor(instant time.Time) time.Time {
	if instant.IsZero() {
		instant = converter.nowProvider()
	}
	localInstant := instant.In(converter.location)
	return time.Date(localInstant.Year(), localInstant.Month(), 1, 0, 0, 0, 0, converter.location)
}

// ToEpochMillis converts a timestamp-like value to epoch milliseconds.
// Numbers and numeric text pass through as epoch milliseconds, zone-less text is read in
// the configured zone, and nil, NaN, booleans, zero times or unparseable values report false.
func (converter *Converter) ToEpochMillis(value any) (int64, bool) {
	switch typedValue := value.(type) {
	case nil, bool:
		return 0, false
	case time.Time:
		if typedValue.IsZero() {
			return 0, false
		}
		return typedValue.UnixMilli(), true
	case *time.Time:
		if typedValue == nil || typedValue.IsZero() {
			return 0, false
		}
		return typedValue.UnixMilli(), true
	case string:
		if milliseconds, numeric := gis.IntegerValue(typedValue); numeric {
			return milliseconds, true
		}
		return converter.parseTextualTimestamp(typedValue)
	default:
		return gis.IntegerValue(typedValue)
	}
}

func (converter *Converter) parseTextualTimestamp(value string) (int64, bool) {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return 0, false
	}
	if zonedInstant, parseError := time.Parse(time.RFC3339Nano, trimmedValue); parseError == nil {
		return zonedInstant.UnixMilli(), true
	}
	for _, layout := range naiveLayouts {
		if naiveInstant, parseError := time.ParseInLocation(layout, trimmedValue, converter.location); parseError == nil {
			return naiveInstant.UnixMilli(), true
		}
	}
	return 0, false
}
