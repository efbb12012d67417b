package gis_test

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/layeraudit/internal/gis"
)

func TestIntegerValueCoercion(testInstance *testing.T) {
	testCases := []struct {
		name          string
		value         any
		expectedValue int64
		expectedValid bool
	}{
		{name: "nil", value: nil, expectedValid: false},
		{name: "int", value: 7, expectedValue: 7, expectedValid: true},
		{name: "float_whole", value: float64(42), expectedValue: 42, expectedValid: true},
		{name: "float_nan", value: math.NaN(), expectedValid: false},
		{name: "float_infinity", value: math.Inf(1), expectedValid: false},
		{name: "json_number", value: json.Number("1700000000000"), expectedValue: 1700000000000, expectedValid: true},
		{name: "numeric_string", value: " 12 ", expectedValue: 12, expectedValid: true},
		{name: "decimal_string", value: "3.0", expectedValue: 3, expectedValid: true},
		{name: "non_numeric_string", value: "layer", expectedValid: false},
		{name: "empty_string", value: "", expectedValid: false},
		{name: "unsigned", value: uint(9), expectedValue: 9, expectedValid: true},
		{name: "unsigned_64", value: uint64(1700000000000), expectedValue: 1700000000000, expectedValid: true},
		{name: "unsigned_overflow", value: uint64(math.MaxUint64), expectedValid: false},
		{name: "small_signed", value: int16(-4), expectedValue: -4, expectedValid: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			actualValue, actualValid := gis.IntegerValue(testCase.value)
			require.Equal(testInstance, testCase.expectedValid, actualValid)
			require.Equal(testInstance, testCase.expectedValue, actualValue)
		})
	}
}

func TestRowLookupIsCaseInsensitive(testInstance *testing.T) {
	row := gis.Row{"Portal": " ArcGIS Online ", "SUB_LAYER_ID": float64(3)}

	require.Equal(testInstance, "ArcGIS Online", row.String("portal"))

	subLayerIdentifier, valid := row.Integer("sub_layer_id")
	require.True(testInstance, valid)
	require.Equal(testInstance, int64(3), subLayerIdentifier)

	require.Equal(testInstance, "", row.String("missing"))
}

func TestItemTagAndKeywordMatching(testInstance *testing.T) {
	item := gis.Item{
		Tags:         []string{" Collab ", "parcels"},
		TypeKeywords: []string{"Hosted Service", "Data"},
	}

	require.True(testInstance, item.HasTag("collab"))
	require.False(testInstance, item.HasTag("roads"))
	require.True(testInstance, item.HasTypeKeyword("Hosted Service"))
	require.False(testInstance, item.HasTypeKeyword("View Service"))
}

func TestHasCapability(testInstance *testing.T) {
	require.True(testInstance, gis.HasCapability("Query, Create,Update", "create"))
	require.False(testInstance, gis.HasCapability("Query", "Create"))
	require.False(testInstance, gis.HasCapability("", "Create"))
}
