package gis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row is a flat attribute mapping as returned by queries and accepted by appends.
type Row map[string]any

// Value returns the attribute stored under name, falling back to a case-insensitive match.
func (row Row) Value(name string) (any, bool) {
	if value, exists := row[name]; exists {
		return value, true
	}
	for key, value := range row {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return nil, false
}

// Integer returns the attribute coerced to an integer.
func (row Row) Integer(name string) (int64, bool) {
	value, exists := row.Value(name)
	if !exists {
		return 0, false
	}
	return IntegerValue(value)
}

// String returns the attribute rendered as a trimmed string; missing and null attributes yield "".
func (row Row) String(name string) string {
	value, exists := row.Value(name)
	if !exists {
		return ""
	}
	return StringValue(value)
}

// IntegerValue coerces JSON-decoded and database values to int64.
// Nulls, NaN, infinities and non-numeric strings are rejected.
func IntegerValue(value any) (int64, bool) {
	switch typedValue := value.(type) {
	case nil:
		return 0, false
	case int:
		return int64(typedValue), true
	case int32:
		return int64(typedValue), true
	case int64:
		return typedValue, true
	case int16:
		return int64(typedValue), true
	case uint16:
		return int64(typedValue), true
	case uint32:
		return int64(typedValue), true
	case uint:
		return unsignedToInteger(uint64(typedValue))
	case uint64:
		return unsignedToInteger(typedValue)
	case float32:
		return floatToInteger(float64(typedValue))
	case float64:
		return floatToInteger(typedValue)
	case bool:
		if typedValue {
			return 1, true
		}
		return 0, true
	case json.Number:
		if integerValue, parseError := typedValue.Int64(); parseError == nil {
			return integerValue, true
		}
		floatValue, parseError := typedValue.Float64()
		if parseError != nil {
			return 0, false
		}
		return floatToInteger(floatValue)
	case string:
		trimmedValue := strings.TrimSpace(typedValue)
		if integerValue, parseError := strconv.ParseInt(trimmedValue, 10, 64); parseError == nil {
			return integerValue, true
		}
		floatValue, parseError := strconv.ParseFloat(trimmedValue, 64)
		if parseError != nil {
			return 0, false
		}
		return floatToInteger(floatValue)
	default:
		return 0, false
	}
}

func unsignedToInteger(value uint64) (int64, bool) {
	if value > math.MaxInt64 {
		return 0, false
	}
	return int64(value), true
}

func floatToInteger(value float64) (int64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	if value >= math.MaxInt64 || value < math.MinInt64 {
		return 0, false
	}
	return int64(value), true
}

// StringValue renders a scalar attribute as a trimmed string; nil yields "".
func StringValue(value any) string {
	switch typedValue := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typedValue)
	case float64:
		if typedValue == math.Trunc(typedValue) && !math.IsInf(typedValue, 0) {
			return strconv.FormatInt(int64(typedValue), 10)
		}
		return strconv.FormatFloat(typedValue, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(typedValue))
	}
}
