// Package reconcile compares the current run with the latest prior record of every
// layer and splits the run into records to upload and unchanged records to skip.
package reconcile
