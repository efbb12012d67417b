package upload

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/layeraudit/internal/gis"
)

const (
	// DefaultBatchSize is used when the configured batch size is not positive.
	DefaultBatchSize                   = 100
	uploadStartedMessageConstant       = "Uploading records"
	batchStartedMessageConstant        = "Uploading batch"
	batchSucceededMessageConstant      = "Batch uploaded"
	batchPartialMessageConstant        = "Batch partially uploaded"
	batchFailedMessageConstant         = "Batch upload failed"
	batchResultMismatchMessageConstant = "Batch returned an unexpected number of results"
	uploadCancelledMessageConstant     = "Upload cancelled, remaining batches not sent"
	unknownErrorDescriptionConstant    = "Unknown"
	batchLogFieldConstant              = "batch"
	recordsLogFieldConstant            = "records"
	totalLogFieldConstant              = "total"
	batchSizeLogFieldConstant          = "batch_size"
	succeededLogFieldConstant          = "succeeded"
	failedLogFieldConstant             = "failed"
	firstErrorLogFieldConstant         = "first_error"
	firstRecordLogFieldConstant        = "first_record"
	lastRecordLogFieldConstant         = "last_record"
	resultsLogFieldConstant            = "results"
)

// Result aggregates per-record outcomes of an upload.
type Result struct {
	SuccessCount  int
	TotalCount    int
	BatchCount    int
	FailedBatches int
}

// Shortfall returns how many records were not written.
func (result Result) Shortfall() int {
	return result.TotalCount - result.SuccessCount
}

// Complete reports whether every record was written.
func (result Result) Complete() bool {
	return result.SuccessCount == result.TotalCount
}

// Writer appends rows to the audit table in consecutive batches.
type Writer struct {
	table     gis.AuditTable
	batchSize int
	logger    *zap.Logger
}

// NewWriter constructs a Writer; batch sizes below 1 fall back to DefaultBatchSize.
func NewWriter(table gis.AuditTable, batchSize int, logger *zap.Logger) *Writer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{table: table, batchSize: batchSize, logger: logger}
}

// Write submits ceil(len(rows)/batchSize) batches. A batch whose call fails contributes
// zero successes and later batches still run. Cancellation stops before the next batch.
func (writer *Writer) Write(executionContext context.Context, rows []gis.Row) Result {
	result := Result{TotalCount: len(rows)}
	writer.logger.Info(uploadStartedMessageConstant, zap.Int(totalLogFieldConstant, len(rows)), zap.Int(batchSizeLogFieldConstant, writer.batchSize))

	for batchStart := 0; batchStart < len(rows); batchStart += writer.batchSize {
		if contextError := executionContext.Err(); contextError != nil {
			writer.logger.Warn(uploadCancelledMessageConstant, zap.Error(contextError))
			break
		}
		batchEnd := batchStart + writer.batchSize
		if batchEnd > len(rows) {
			batchEnd = len(rows)
		}
		batch := rows[batchStart:batchEnd]
		result.BatchCount++
		batchNumber := result.BatchCount

		writer.logger.Info(
			batchStartedMessageConstant,
			zap.Int(batchLogFieldConstant, batchNumber),
			zap.Int(recordsLogFieldConstant, len(batch)),
			zap.Int(firstRecordLogFieldConstant, batchStart+1),
			zap.Int(lastRecordLogFieldConstant, batchEnd),
			zap.Int(totalLogFieldConstant, len(rows)),
		)

		addResults, addError := writer.table.AddRecords(executionContext, batch)
		if addError != nil {
			result.FailedBatches++
			writer.logger.Error(batchFailedMessageConstant, zap.Int(batchLogFieldConstant, batchNumber), zap.Error(addError))
			continue
		}
		if len(addResults) != len(batch) {
			writer.logger.Warn(batchResultMismatchMessageConstant, zap.Int(batchLogFieldConstant, batchNumber), zap.Int(resultsLogFieldConstant, len(addResults)), zap.Int(recordsLogFieldConstant, len(batch)))
		}

		batchSuccesses, firstErrorDescription := countSuccesses(addResults, len(batch))
		result.SuccessCount += batchSuccesses
		if batchSuccesses == len(batch) {
			writer.logger.Info(batchSucceededMessageConstant, zap.Int(batchLogFieldConstant, batchNumber), zap.Int(succeededLogFieldConstant, batchSuccesses))
			continue
		}
		writer.logger.Warn(
			batchPartialMessageConstant,
			zap.Int(batchLogFieldConstant, batchNumber),
			zap.Int(succeededLogFieldConstant, batchSuccesses),
			zap.Int(failedLogFieldConstant, len(batch)-batchSuccesses),
			zap.String(firstErrorLogFieldConstant, firstErrorDescription),
		)
	}
	return result
}

// countSuccesses never credits more successes than submitted rows.
func countSuccesses(addResults []gis.AddResult, submitted int) (int, string) {
	successes := 0
	firstErrorDescription := ""
	for resultIndex, addResult := range addResults {
		if resultIndex >= submitted {
			break
		}
		if addResult.Success {
			successes++
			continue
		}
		if len(firstErrorDescription) == 0 {
			firstErrorDescription = addResult.ErrorDescription
			if len(firstErrorDescription) == 0 {
				firstErrorDescription = unknownErrorDescriptionConstant
			}
		}
	}
	return successes, firstErrorDescription
}
