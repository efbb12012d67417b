package records_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/layeraudit/internal/gis"
	"github.com/temirov/layeraudit/internal/records"
)

func TestIdentityKeyNormalization(testInstance *testing.T) {
	expectedKey := records.IdentityKey{EnvironmentName: "ArcGIS Online", ItemID: "abc123", SubLayerID: 0}

	testCases := []struct {
		name string
		row  gis.Row
	}{
		{name: "padded_strings_null_sub_layer", row: gis.Row{"portal": " ArcGIS Online ", "item_id": "abc123 ", "sub_layer_id": nil}},
		{name: "missing_sub_layer", row: gis.Row{"portal": "ArcGIS Online", "item_id": "abc123"}},
		{name: "float_zero_sub_layer", row: gis.Row{"portal": "ArcGIS Online", "item_id": "abc123", "sub_layer_id": float64(0)}},
		{name: "non_numeric_sub_layer", row: gis.Row{"portal": "ArcGIS Online", "item_id": "abc123", "sub_layer_id": "n/a"}},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, expectedKey, records.IdentityKeyFromRow(testCase.row))
		})
	}

	collected := records.LayerRecord{EnvironmentName: "ArcGIS Online ", ItemID: " abc123", SubLayerID: 0}
	require.Equal(testInstance, expectedKey, collected.Key())
}

func TestDetectCapabilities(testInstance *testing.T) {
	capabilities := records.DetectCapabilities([]string{"OBJECTID", "Sub_Layer_Name", "delta_features", "portal"})

	require.True(testInstance, capabilities.SubLayerName)
	require.True(testInstance, capabilities.DeltaFeatures)
	require.False(testInstance, capabilities.SubLayerID)
	require.False(testInstance, capabilities.Owner)
	require.False(testInstance, capabilities.ItemURL)
	require.Contains(testInstance, capabilities.String(), "delta_features=true")
}

func TestLayerRecordDelta(testInstance *testing.T) {
	delta := int64(-4)
	require.Equal(testInstance, int64(-4), records.LayerRecord{DeltaFeatures: &delta}.Delta())
	require.Equal(testInstance, int64(0), records.LayerRecord{}.Delta())
}
