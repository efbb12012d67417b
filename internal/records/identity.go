package records

import (
	"fmt"
	"strings"

	"github.com/temirov/layeraudit/internal/gis"
)

const (
	identityKeyStringTemplateConstant = "%s/%s/%d"
)

// IdentityKey identifies a monitored layer across runs.
type IdentityKey struct {
	EnvironmentName string
	ItemID          string
	SubLayerID      int
}

// NewIdentityKey normalizes raw key components: names are trimmed strings and
// a missing or non-numeric sub-layer id becomes 0.
func NewIdentityKey(environmentName any, itemID any, subLayerID any) IdentityKey {
	normalizedSubLayerID := 0
	if numericSubLayerID, numeric := gis.IntegerValue(subLayerID); numeric {
		normalizedSubLayerID = int(numericSubLayerID)
	}
	return IdentityKey{
		EnvironmentName: gis.StringValue(environmentName),
		ItemID:          gis.StringValue(itemID),
		SubLayerID:      normalizedSubLayerID,
	}
}

// IdentityKeyFromRow reads the key from a persisted audit row.
func IdentityKeyFromRow(row gis.Row) IdentityKey {
	environmentName, _ := row.Value(FieldPortal)
	itemID, _ := row.Value(FieldItemID)
	subLayerID, _ := row.Value(FieldSubLayerID)
	return NewIdentityKey(environmentName, itemID, subLayerID)
}

// String renders the key for logs.
func (key IdentityKey) String() string {
	return fmt.Sprintf(identityKeyStringTemplateConstant, key.EnvironmentName, key.ItemID, key.SubLayerID)
}

func trimmed(value string) string {
	return strings.TrimSpace(value)
}
