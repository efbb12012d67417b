// Package sqlite stores audit records in a local SQLite table that behaves like
// the hosted audit table: declared fields, filtered reads and per-row append results.
package sqlite
