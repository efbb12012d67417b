package records

import "time"

// LayerRecord is the metadata snapshot of one sublayer produced once per run.
type LayerRecord struct {
	EnvironmentName string
	ItemID          string
	SubLayerID      int
	LayerName       string
	SubLayerName    string
	Owner           string
	LastEditedUser  string
	CreatedUser     string
	ItemCreated     *time.Time
	ItemUpdated     *time.Time
	DataUpdated     time.Time
	SchemaUpdated   *time.Time
	FiscalYear      string
	ReportMonth     time.Time
	TotalFeatures   int64
	IsAuthoritative bool
	RunID           string
	RunTimestamp    int64
	RunLabel        string
	TimeZone        string
	// DeltaFeatures is nil when the destination does not track deltas.
	DeltaFeatures *int64
	ItemURL       string
}

// Key returns the normalized identity key of the record.
func (record LayerRecord) Key() IdentityKey {
	return IdentityKey{
		EnvironmentName: trimmed(record.EnvironmentName),
		ItemID:          trimmed(record.ItemID),
		SubLayerID:      record.SubLayerID,
	}
}

// Delta returns the tracked delta, treating an untracked value as zero.
func (record LayerRecord) Delta() int64 {
	if record.DeltaFeatures == nil {
		return 0
	}
	return *record.DeltaFeatures
}

// ComparableWithin reports whether earlier rows in the destination can identify this
// record. Without a sub-layer id column only sub-layer 0 keeps its identity.
func (record LayerRecord) ComparableWithin(capabilities SchemaCapabilities) bool {
	return capabilities.SubLayerID || record.SubLayerID == 0
}

// KeyWithin returns the identity key as the destination can persist it: without a
// sub-layer id column every stored key carries sub-layer 0, so the current key must too.
// Callers check ComparableWithin before using it for lookups.
func (record LayerRecord) KeyWithin(capabilities SchemaCapabilities) IdentityKey {
	key := record.Key()
	if !capabilities.SubLayerID {
		key.SubLayerID = 0
	}
	return key
}
