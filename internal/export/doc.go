// Package export writes the unchanged layers of a run to a timestamped CSV file,
// prunes expired exports, and optionally mirrors each export to S3.
package export
