package editfields_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/layeraudit/internal/editfields"
	"github.com/temirov/layeraudit/internal/gis"
)

type stubLayer struct {
	url             string
	properties      gis.LayerProperties
	rows            []gis.Row
	queryError      error
	propertyReads   atomic.Int64
	mutex           sync.Mutex
	recordedQueries []gis.QueryParameters
}

func (layer *stubLayer) URL() string {
	return layer.url
}

func (layer *stubLayer) Properties() gis.LayerProperties {
	layer.propertyReads.Add(1)
	return layer.properties
}

func (layer *stubLayer) Count(context.Context, string) (int64, error) {
	return int64(len(layer.rows)), nil
}

func (layer *stubLayer) Query(_ context.Context, parameters gis.QueryParameters) ([]gis.Row, error) {
	layer.mutex.Lock()
	layer.recordedQueries = append(layer.recordedQueries, parameters)
	layer.mutex.Unlock()
	if layer.queryError != nil {
		return nil, layer.queryError
	}
	return layer.rows, nil
}

func fieldsNamed(names ...string) []gis.Field {
	fields := make([]gis.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, gis.Field{Name: name})
	}
	return fields
}

func TestDetectFields(testInstance *testing.T) {
	testCases := []struct {
		name       string
		properties gis.LayerProperties
		expected   editfields.EditFields
	}{
		{
			name: "declared_metadata_wins",
			properties: gis.LayerProperties{
				Fields: fieldsNamed("Creator", "EditDate", "custom_editor", "custom_edit_date"),
				EditFieldsInfo: map[string]string{
					"EditorField":   "custom_editor",
					"editDateField": "custom_edit_date",
				},
			},
			expected: editfields.EditFields{Creator: "Creator", Editor: "custom_editor", EditDate: "custom_edit_date"},
		},
		{
			name:       "candidate_names_case_insensitive",
			properties: gis.LayerProperties{Fields: fieldsNamed("CREATED_USER", "date_created", "last_edited_user", "LAST_EDITED_DATE")},
			expected: editfields.EditFields{
				Creator:    "CREATED_USER",
				CreateDate: "date_created",
				Editor:     "last_edited_user",
				EditDate:   "LAST_EDITED_DATE",
			},
		},
		{
			name:       "candidate_order_respected",
			properties: gis.LayerProperties{Fields: fieldsNamed("Editor_1", "Editor")},
			expected:   editfields.EditFields{Editor: "Editor"},
		},
		{
			name:       "unresolved",
			properties: gis.LayerProperties{Fields: fieldsNamed("OBJECTID", "name")},
			expected:   editfields.EditFields{},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, editfields.DetectFields(testCase.properties))
		})
	}
}

func TestDetectFieldsResolvesMetadataKeyCollisionsDeterministically(testInstance *testing.T) {
	testCases := []struct {
		name           string
		editFieldsInfo map[string]string
		expected       editfields.EditFields
	}{
		{
			name: "exact_key_wins",
			editFieldsInfo: map[string]string{
				"creatorfield": "lower_creator",
				"creatorField": "exact_creator",
				"CREATORFIELD": "upper_creator",
			},
			expected: editfields.EditFields{Creator: "exact_creator"},
		},
		{
			name: "blank_exact_key_falls_back_in_key_order",
			editFieldsInfo: map[string]string{
				"editorField":  " ",
				"editorfield":  "lower_editor",
				"EDITORFIELD":  "upper_editor",
				"EditorField ": "padded_editor",
			},
			expected: editfields.EditFields{Editor: "upper_editor"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			properties := gis.LayerProperties{Fields: fieldsNamed("OBJECTID"), EditFieldsInfo: testCase.editFieldsInfo}
			for attempt := 0; attempt < 50; attempt++ {
				require.Equal(subTestInstance, testCase.expected, editfields.DetectFields(properties))
			}
		})
	}
}

func TestDetectorCachesPerLayer(testInstance *testing.T) {
	layer := &stubLayer{
		url:        "https://example.test/FeatureServer/0",
		properties: gis.LayerProperties{Fields: fieldsNamed("Editor", "EditDate")},
	}
	detector := editfields.NewDetector(nil)

	detectedEditors := make([]string, 16)
	var waitGroup sync.WaitGroup
	for workerIndex := range detectedEditors {
		waitGroup.Add(1)
		go func(index int) {
			defer waitGroup.Done()
			detectedEditors[index] = detector.Detect(layer).Editor
		}(workerIndex)
	}
	waitGroup.Wait()
	for _, detectedEditor := range detectedEditors {
		require.Equal(testInstance, "Editor", detectedEditor)
	}

	readsAfterConcurrentDetection := layer.propertyReads.Load()
	require.LessOrEqual(testInstance, readsAfterConcurrentDetection, int64(16))

	detector.Detect(layer)
	require.Equal(testInstance, readsAfterConcurrentDetection, layer.propertyReads.Load())
}

func TestLatestUser(testInstance *testing.T) {
	testCases := []struct {
		name      string
		layer     *stubLayer
		userField string
		dateField string
		expected  string
		queried   bool
	}{
		{
			name:      "returns_user_of_latest_row",
			layer:     &stubLayer{url: "a", rows: []gis.Row{{"Editor": "jdoe", "EditDate": int64(10)}}},
			userField: "Editor",
			dateField: "EditDate",
			expected:  "jdoe",
			queried:   true,
		},
		{
			name:      "unresolved_user_field",
			layer:     &stubLayer{url: "b"},
			dateField: "EditDate",
			expected:  "",
		},
		{
			name:      "query_failure_yields_empty",
			layer:     &stubLayer{url: "c", queryError: errors.New("boom")},
			userField: "Editor",
			dateField: "EditDate",
			expected:  "",
			queried:   true,
		},
		{
			name:      "no_rows",
			layer:     &stubLayer{url: "d"},
			userField: "Editor",
			dateField: "EditDate",
			expected:  "",
			queried:   true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			detector := editfields.NewDetector(nil)
			user := detector.LatestUser(context.Background(), testCase.layer, testCase.userField, testCase.dateField, editfields.SortDescending)
			require.Equal(testInstance, testCase.expected, user)
			if !testCase.queried {
				require.Empty(testInstance, testCase.layer.recordedQueries)
				return
			}
			require.Len(testInstance, testCase.layer.recordedQueries, 1)
			query := testCase.layer.recordedQueries[0]
			require.Equal(testInstance, 1, query.RecordCount)
			require.Equal(testInstance, "EditDate DESC", query.OrderBy)
			require.Equal(testInstance, "Editor IS NOT NULL AND EditDate IS NOT NULL", query.Where)
		})
	}
}

func TestLatestEditDate(testInstance *testing.T) {
	layer := &stubLayer{
		url:        "https://example.test/FeatureServer/3",
		properties: gis.LayerProperties{Fields: fieldsNamed("EditDate")},
		rows:       []gis.Row{{"EditDate": float64(1700000000000)}},
	}
	detector := editfields.NewDetector(nil)
	require.Equal(testInstance, int64(1700000000000), detector.LatestEditDate(context.Background(), layer))

	withoutField := &stubLayer{url: "https://example.test/FeatureServer/4"}
	require.Zero(testInstance, detector.LatestEditDate(context.Background(), withoutField))
	require.Empty(testInstance, withoutField.recordedQueries)
}

func TestExtractEditDates(testInstance *testing.T) {
	testCases := []struct {
		name     string
		layer    gis.LayerProperties
		service  gis.ServiceProperties
		expected editfields.EditDates
	}{
		{
			name:     "layer_editing_info",
			layer:    gis.LayerProperties{EditingInfo: &gis.EditingInfo{DataLastEditDate: 5, SchemaLastEditDate: 6}},
			service:  gis.ServiceProperties{EditingInfo: &gis.EditingInfo{DataLastEditDate: 7, SchemaLastEditDate: 8}},
			expected: editfields.EditDates{DataUpdated: 5, SchemaUpdated: 6},
		},
		{
			name:     "service_editing_info_fills_gaps",
			layer:    gis.LayerProperties{EditingInfo: &gis.EditingInfo{DataLastEditDate: 5}},
			service:  gis.ServiceProperties{EditingInfo: &gis.EditingInfo{DataLastEditDate: 7, SchemaLastEditDate: 8}},
			expected: editfields.EditDates{DataUpdated: 5, SchemaUpdated: 8},
		},
		{
			name:     "schema_falls_back_to_last_schema_edit_date",
			layer:    gis.LayerProperties{},
			service:  gis.ServiceProperties{LastSchemaEditDate: 9},
			expected: editfields.EditDates{SchemaUpdated: 9},
		},
		{
			name:     "nothing_known",
			expected: editfields.EditDates{},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, editfields.ExtractEditDates(testCase.layer, testCase.service))
		})
	}
}
