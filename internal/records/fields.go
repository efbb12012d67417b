package records

// Destination audit table field names.
const (
	FieldPortal          = "portal"
	FieldLayerName       = "layer_name"
	FieldItemID          = "item_id"
	FieldFiscalYear      = "FY"
	FieldOwner           = "owner"
	FieldLastEditedUser  = "last_edited_user"
	FieldCreatedUser     = "created_user"
	FieldItemCreated     = "item_created"
	FieldItemUpdated     = "item_updated"
	FieldDataUpdated     = "data_updated"
	FieldSchemaUpdated   = "schema_updated"
	FieldReportMonth     = "report_month"
	FieldTotalFeatures   = "total_features"
	FieldIsAuthoritative = "is_authoritative"
	FieldRunTimestamp    = "run_timestamp"
	FieldRunLabel        = "data_run_label"
	FieldRunID           = "edit_run_id"
	FieldTimeZone        = "time_zone"
	FieldSubLayerName    = "sub_layer_name"
	FieldSubLayerID      = "sub_layer_id"
	FieldDeltaFeatures   = "delta_features"
	FieldItemURL         = "item_url"
)

// RequiredFieldNames lists the attributes present on every uploaded record, in column order.
var RequiredFieldNames = []string{
	FieldPortal,
	FieldLayerName,
	FieldItemID,
	FieldFiscalYear,
	FieldOwner,
	FieldLastEditedUser,
	FieldCreatedUser,
	FieldItemCreated,
	FieldItemUpdated,
	FieldDataUpdated,
	FieldSchemaUpdated,
	FieldReportMonth,
	FieldTotalFeatures,
	FieldIsAuthoritative,
	FieldRunTimestamp,
	FieldRunLabel,
	FieldRunID,
	FieldTimeZone,
}

// OptionalFieldNames lists the attributes written only when the destination declares them.
var OptionalFieldNames = []string{
	FieldSubLayerName,
	FieldSubLayerID,
	FieldDeltaFeatures,
	FieldItemURL,
}

// DateFieldNames lists the attributes carrying timestamps that travel as epoch milliseconds.
var DateFieldNames = []string{
	FieldItemCreated,
	FieldItemUpdated,
	FieldDataUpdated,
	FieldSchemaUpdated,
}

// SnapshotFieldNames lists the attributes read back from the audit table for run-to-run comparison.
var SnapshotFieldNames = []string{
	FieldPortal,
	FieldItemID,
	FieldSubLayerID,
	FieldTotalFeatures,
	FieldItemCreated,
	FieldItemUpdated,
	FieldDataUpdated,
	FieldSchemaUpdated,
	FieldRunTimestamp,
}

// AllFieldNames returns required then optional field names.
func AllFieldNames() []string {
	allNames := make([]string, 0, len(RequiredFieldNames)+len(OptionalFieldNames))
	allNames = append(allNames, RequiredFieldNames...)
	return append(allNames, OptionalFieldNames...)
}
