package reconcile

import (
	"go.uber.org/zap"

	"github.com/temirov/layeraudit/internal/records"
)

const (
	firstRunPassThroughMessageConstant     = "No previous snapshot, uploading every record as new"
	deltaMissingPassThroughMessageConstant = "Delta tracking unavailable, net-change filtering disabled; uploading every record"
	filteringMessageConstant               = "Filtering layers by net feature change"
	filteredMessageConstant                = "Unchanged layers skipped from upload"
	skippedLogFieldConstant                = "skipped"
	uploadLogFieldConstant                 = "upload"
)

// Outcome names how a reconciliation was decided.
type Outcome string

// Reconciliation outcomes.
const (
	OutcomeFiltered         Outcome = "filtered"
	OutcomeFirstRun         Outcome = "first_run"
	OutcomeDeltaUnavailable Outcome = "delta_unavailable"
)

// Result partitions the current run. ToUpload and Skipped are disjoint and together
// hold every current record in their original order.
type Result struct {
	ToUpload []records.LayerRecord
	Skipped  []records.LayerRecord
	Outcome  Outcome
}

// Engine applies the skip rule: a record is skipped only when its key existed in an
// earlier run and its delta is exactly zero. Records the destination cannot identify
// across runs are always uploaded.
type Engine struct {
	logger *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Reconcile splits current against snapshot. Without a delta column in the destination,
// or without any prior record, every record passes through.
func (engine *Engine) Reconcile(current []records.LayerRecord, snapshot Snapshot, capabilities records.SchemaCapabilities) Result {
	if snapshot.Empty() {
		engine.logger.Info(firstRunPassThroughMessageConstant)
		return Result{ToUpload: current, Skipped: []records.LayerRecord{}, Outcome: OutcomeFirstRun}
	}
	if !capabilities.DeltaFeatures {
		engine.logger.Warn(deltaMissingPassThroughMessageConstant)
		return Result{ToUpload: current, Skipped: []records.LayerRecord{}, Outcome: OutcomeDeltaUnavailable}
	}

	engine.logger.Info(filteringMessageConstant)
	result := Result{
		ToUpload: make([]records.LayerRecord, 0, len(current)),
		Skipped:  make([]records.LayerRecord, 0),
		Outcome:  OutcomeFiltered,
	}
	for _, record := range current {
		if record.ComparableWithin(capabilities) && snapshot.Contains(record.KeyWithin(capabilities)) && record.Delta() == 0 {
			result.Skipped = append(result.Skipped, record)
			continue
		}
		result.ToUpload = append(result.ToUpload, record)
	}
	engine.logger.Info(filteredMessageConstant, zap.Int(skippedLogFieldConstant, len(result.Skipped)), zap.Int(uploadLogFieldConstant, len(result.ToUpload)))
	return result
}
