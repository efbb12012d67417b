package records

import (
	"fmt"
	"strings"
)

const (
	capabilitiesStringTemplateConstant = "sub_layer_name=%t, sub_layer_id=%t, owner=%t, item_url=%t, delta_features=%t"
)

// SchemaCapabilities records which optional columns the destination table supports.
// It is detected once per run and never changes afterwards.
type SchemaCapabilities struct {
	SubLayerName  bool
	SubLayerID    bool
	Owner         bool
	ItemURL       bool
	DeltaFeatures bool
}

// DetectCapabilities inspects declared field names case-insensitively.
func DetectCapabilities(fieldNames []string) SchemaCapabilities {
	declared := make(map[string]struct{}, len(fieldNames))
	for _, fieldName := range fieldNames {
		declared[strings.ToLower(strings.TrimSpace(fieldName))] = struct{}{}
	}
	has := func(fieldName string) bool {
		_, exists := declared[strings.ToLower(fieldName)]
		return exists
	}
	return SchemaCapabilities{
		SubLayerName:  has(FieldSubLayerName),
		SubLayerID:    has(FieldSubLayerID),
		Owner:         has(FieldOwner),
		ItemURL:       has(FieldItemURL),
		DeltaFeatures: has(FieldDeltaFeatures),
	}
}

// String renders the flags for log output.
func (capabilities SchemaCapabilities) String() string {
	return fmt.Sprintf(
		capabilitiesStringTemplateConstant,
		capabilities.SubLayerName,
		capabilities.SubLayerID,
		capabilities.Owner,
		capabilities.ItemURL,
		capabilities.DeltaFeatures,
	)
}
