// Package records defines the per-layer audit record, its cross-run identity key,
// and the destination schema capabilities that gate optional attributes.
package records
