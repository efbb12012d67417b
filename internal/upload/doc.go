// Package upload converts layer records into destination rows and appends them to
// the audit table in fixed-size batches, tolerating failed batches.
package upload
