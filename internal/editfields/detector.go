package editfields

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/layeraudit/internal/gis"
)

// SortOrder selects which extreme of the date field wins in LatestUser.
type SortOrder string

const (
	// SortDescending selects the latest date.
	SortDescending SortOrder = "DESC"
	// SortAscending selects the earliest date.
	SortAscending SortOrder = "ASC"
)

const (
	latestUserWhereTemplateConstant      = "%s IS NOT NULL AND %s IS NOT NULL"
	latestUserOrderTemplateConstant      = "%s %s"
	latestUserQueryFailedMessageConstant = "Latest user query failed"
	layerURLLogFieldConstant             = "layer_url"
	userFieldLogFieldConstant            = "user_field"
	dateFieldLogFieldConstant            = "date_field"
	editDateWhereTemplateConstant        = "%s IS NOT NULL"
)

var (
	creatorMetadataKeys    = []string{"creatorField"}
	createDateMetadataKeys = []string{"creationDateField", "createDateField", "createdDateField"}
	editorMetadataKeys     = []string{"editorField", "editUserField"}
	editDateMetadataKeys   = []string{"editDateField", "lastEditDateField"}

	creatorCandidates    = []string{"Creator", "Creator_1", "created_user", "createdby"}
	createDateCandidates = []string{"CreationDate", "CreationDate_1", "created_date", "date_created", "CreateDate"}
	editorCandidates     = []string{"Editor", "Editor_1", "last_edited_user", "editedby", "edit_user"}
	editDateCandidates   = []string{"EditDate", "EditDate_1", "last_edited_date", "last_edit_date", "LastEditDate"}
)

// EditFields holds resolved field names; an empty name means unresolved.
type EditFields struct {
	Creator    string
	CreateDate string
	Editor     string
	EditDate   string
}

// Detector resolves edit fields once per layer endpoint and memoizes the result.
// Concurrent detection of the same layer may compute twice; the outcome is identical.
type Detector struct {
	cache  sync.Map
	logger *zap.Logger
}

// NewDetector constructs a Detector.
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logger: logger}
}

// Detect returns the edit fields of layer, consulting the cache first.
func (detector *Detector) Detect(layer gis.Layer) EditFields {
	cacheKey := layer.URL()
	if cachedFields, cached := detector.cache.Load(cacheKey); cached {
		return cachedFields.(EditFields)
	}
	detectedFields := DetectFields(layer.Properties())
	storedFields, _ := detector.cache.LoadOrStore(cacheKey, detectedFields)
	return storedFields.(EditFields)
}

// DetectFields resolves edit fields from declared edit tracking metadata and then common field names.
func DetectFields(properties gis.LayerProperties) EditFields {
	fieldNames := properties.FieldNames()
	return EditFields{
		Creator:    resolveField(properties.EditFieldsInfo, creatorMetadataKeys, creatorCandidates, fieldNames),
		CreateDate: resolveField(properties.EditFieldsInfo, createDateMetadataKeys, createDateCandidates, fieldNames),
		Editor:     resolveField(properties.EditFieldsInfo, editorMetadataKeys, editorCandidates, fieldNames),
		EditDate:   resolveField(properties.EditFieldsInfo, editDateMetadataKeys, editDateCandidates, fieldNames),
	}
}

// resolveField prefers an exact metadata key, then a case-insensitive one in key order,
// then a well-known field name.
func resolveField(editFieldsInfo map[string]string, metadataKeys []string, candidates []string, fieldNames []string) string {
	declaredKeys := make([]string, 0, len(editFieldsInfo))
	for declaredKey := range editFieldsInfo {
		declaredKeys = append(declaredKeys, declaredKey)
	}
	sort.Strings(declaredKeys)

	for _, metadataKey := range metadataKeys {
		if declaredField := strings.TrimSpace(editFieldsInfo[metadataKey]); len(declaredField) > 0 {
			return declaredField
		}
		for _, declaredKey := range declaredKeys {
			declaredField := strings.TrimSpace(editFieldsInfo[declaredKey])
			if strings.EqualFold(declaredKey, metadataKey) && len(declaredField) > 0 {
				return declaredField
			}
		}
	}
	for _, candidate := range candidates {
		for _, fieldName := range fieldNames {
			if strings.EqualFold(fieldName, candidate) {
				return fieldName
			}
		}
	}
	return ""
}

// LatestUser returns the user recorded with the most extreme date, or "" when either field
// is unresolved, the query fails, or no row matches. It never returns an error.
func (detector *Detector) LatestUser(executionContext context.Context, layer gis.Layer, userField string, dateField string, order SortOrder) string {
	if len(userField) == 0 || len(dateField) == 0 {
		return ""
	}
	if order != SortAscending {
		order = SortDescending
	}
	rows, queryError := layer.Query(executionContext, gis.QueryParameters{
		Where:       fmt.Sprintf(latestUserWhereTemplateConstant, userField, dateField),
		OutFields:   []string{userField, dateField},
		OrderBy:     fmt.Sprintf(latestUserOrderTemplateConstant, dateField, order),
		RecordCount: 1,
	})
	if queryError != nil {
		detector.logger.Debug(
			latestUserQueryFailedMessageConstant,
			zap.String(layerURLLogFieldConstant, layer.URL()),
			zap.String(userFieldLogFieldConstant, userField),
			zap.String(dateFieldLogFieldConstant, dateField),
			zap.Error(queryError),
		)
		return ""
	}
	if len(rows) == 0 {
		return ""
	}
	return rows[0].String(userField)
}

// LastEditor returns the most recent editor of layer.
func (detector *Detector) LastEditor(executionContext context.Context, layer gis.Layer) string {
	fields := detector.Detect(layer)
	return detector.LatestUser(executionContext, layer, fields.Editor, fields.EditDate, SortDescending)
}

// LastCreator returns the most recent creator of layer.
func (detector *Detector) LastCreator(executionContext context.Context, layer gis.Layer) string {
	fields := detector.Detect(layer)
	return detector.LatestUser(executionContext, layer, fields.Creator, fields.CreateDate, SortDescending)
}

// LatestEditDate queries the most recent value of the detected edit-date field in epoch milliseconds.
// Zero means unavailable.
func (detector *Detector) LatestEditDate(executionContext context.Context, layer gis.Layer) int64 {
	editDateField := detector.Detect(layer).EditDate
	if len(editDateField) == 0 {
		return 0
	}
	rows, queryError := layer.Query(executionContext, gis.QueryParameters{
		Where:       fmt.Sprintf(editDateWhereTemplateConstant, editDateField),
		OutFields:   []string{editDateField},
		OrderBy:     fmt.Sprintf(latestUserOrderTemplateConstant, editDateField, SortDescending),
		RecordCount: 1,
	})
	if queryError != nil || len(rows) == 0 {
		return 0
	}
	latestDate, numeric := rows[0].Integer(editDateField)
	if !numeric {
		return 0
	}
	return latestDate
}
