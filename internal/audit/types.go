package audit

import (
	"context"
	"errors"
	"time"

	"github.com/temirov/layeraudit/internal/reconcile"
	"github.com/temirov/layeraudit/internal/records"
	"github.com/temirov/layeraudit/internal/runcontext"
)

// Fatal run errors; nothing is collected when either is returned.
var (
	ErrAuditTableUnavailable = errors.New("audit table unavailable")
	ErrAuditTableNotEditable = errors.New("audit table does not allow adding records")
)

// RunMode distinguishes a full upload from an incremental one.
type RunMode string

// Run modes.
const (
	RunModeFirstRun    RunMode = "first run"
	RunModeIncremental RunMode = "incremental"
)

// SkippedExporter persists the audit trail of unchanged layers.
type SkippedExporter interface {
	Export(executionContext context.Context, skipped []records.LayerRecord, runContext runcontext.RunContext) (string, error)
}

// Summary reports the outcome of one run.
type Summary struct {
	RunID          string
	RunLabel       string
	FiscalYear     string
	Mode           RunMode
	Capabilities   records.SchemaCapabilities
	ItemsCollected int
	ItemsSkipped   int
	ItemsFailed    int
	ListingFailed  int
	Collected      int
	Reconciliation reconcile.Outcome
	Skipped        int
	ExportPath     string
	Delta          reconcile.DeltaSummary
	Processed      int
	Succeeded      int
	FailedBatches  int
	Runtime        time.Duration
}

// Failed returns the number of records that were not written.
func (summary Summary) Failed() int {
	return summary.Processed - summary.Succeeded
}

// Complete reports whether every collected item and every record was handled without failure.
func (summary Summary) Complete() bool {
	return summary.Failed() == 0 && summary.ItemsFailed == 0 && summary.ListingFailed == 0
}
