package runcontext

import (
	"time"

	"github.com/google/uuid"
)

const (
	runLabelLayoutConstant       = "2006-01-02 03:04 PM MST"
	runFileStampLayoutConstant   = "20060102_150405"
	runExportStampLayoutConstant = "2006-01-02 15:04:05"
)

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// IdentifierGenerator produces unique run identifiers.
type IdentifierGenerator func() string

// RunContext is created once per process and read-only afterwards.
type RunContext struct {
	utcNow   time.Time
	localNow time.Time
	runID    string
}

// New captures the current instant from clock and derives the local view for location.
func New(clock Clock, location *time.Location, identifierGenerator IdentifierGenerator) RunContext {
	if clock == nil {
		clock = SystemClock{}
	}
	if location == nil {
		location = time.Local
	}
	if identifierGenerator == nil {
		identifierGenerator = uuid.NewString
	}
	utcNow := clock.Now().UTC()
	return RunContext{
		utcNow:   utcNow,
		localNow: utcNow.In(location),
		runID:    identifierGenerator(),
	}
}

// UTCNow returns the run start instant in UTC.
func (runContext RunContext) UTCNow() time.Time {
	return runContext.utcNow
}

// LocalNow returns the run start instant in the configured zone.
func (runContext RunContext) LocalNow() time.Time {
	return runContext.localNow
}

// RunID returns the unique run identifier.
func (runContext RunContext) RunID() string {
	return runContext.runID
}

// RunLabel renders the local start instant for humans, e.g. "2025-03-03 08:30 AM CST".
func (runContext RunContext) RunLabel() string {
	return runContext.localNow.Format(runLabelLayoutConstant)
}

// RunTimestamp returns the run start instant in epoch milliseconds.
func (runContext RunContext) RunTimestamp() int64 {
	return runContext.utcNow.UnixMilli()
}

// FileStamp renders the local start instant for file names.
func (runContext RunContext) FileStamp() string {
	return runContext.localNow.Format(runFileStampLayoutConstant)
}

// ExportTimestamp renders a local instant without zone suffix for tabular exports.
func ExportTimestamp(instant time.Time) string {
	return instant.Format(runExportStampLayoutConstant)
}
