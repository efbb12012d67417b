package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/layeraudit/internal/gis"
	"github.com/temirov/layeraudit/internal/records"
)

const (
	previousRunsWhereTemplateConstant = "%s < %d"
	snapshotLoadingMessageConstant    = "Loading previous run snapshot"
	snapshotLoadFailedMessageConstant = "Unable to load previous snapshot, treating run as first run"
	snapshotEmptyMessageConstant      = "No previous audit records found, this appears to be the first run"
	snapshotLoadedMessageConstant     = "Loaded latest record per layer"
	rowsLogFieldConstant              = "rows"
	layersLogFieldConstant            = "layers"
	runTimestampLogFieldConstant      = "run_timestamp"
)

// SnapshotLoader reads the previous snapshot from the audit table.
type SnapshotLoader struct {
	table        gis.AuditTable
	capabilities records.SchemaCapabilities
	logger       *zap.Logger
}

// NewSnapshotLoader constructs a SnapshotLoader.
func NewSnapshotLoader(table gis.AuditTable, capabilities records.SchemaCapabilities, logger *zap.Logger) *SnapshotLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotLoader{table: table, capabilities: capabilities, logger: logger}
}

// Load fetches records from runs before currentRunTimestamp. A failed read is logged
// and yields an empty snapshot.
func (loader *SnapshotLoader) Load(executionContext context.Context, currentRunTimestamp int64) Snapshot {
	loader.logger.Info(snapshotLoadingMessageConstant, zap.Int64(runTimestampLogFieldConstant, currentRunTimestamp))

	rows, queryError := loader.table.Query(executionContext, gis.QueryParameters{
		Where:     fmt.Sprintf(previousRunsWhereTemplateConstant, records.FieldRunTimestamp, currentRunTimestamp),
		OutFields: loader.outFields(),
	})
	if queryError != nil {
		loader.logger.Warn(snapshotLoadFailedMessageConstant, zap.Error(queryError))
		return NewSnapshot(nil, currentRunTimestamp)
	}

	snapshot := NewSnapshot(rows, currentRunTimestamp)
	if snapshot.Empty() {
		loader.logger.Info(snapshotEmptyMessageConstant)
		return snapshot
	}
	loader.logger.Info(snapshotLoadedMessageConstant, zap.Int(rowsLogFieldConstant, len(rows)), zap.Int(layersLogFieldConstant, snapshot.Len()))
	return snapshot
}

func (loader *SnapshotLoader) outFields() []string {
	outFields := make([]string, 0, len(records.SnapshotFieldNames))
	for _, fieldName := range records.SnapshotFieldNames {
		if fieldName == records.FieldSubLayerID && !loader.capabilities.SubLayerID {
			continue
		}
		outFields = append(outFields, fieldName)
	}
	return outFields
}
