package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/layeraudit/internal/collector"
	"github.com/temirov/layeraudit/internal/editfields"
	"github.com/temirov/layeraudit/internal/gis"
	"github.com/temirov/layeraudit/internal/metrics"
	"github.com/temirov/layeraudit/internal/reconcile"
	"github.com/temirov/layeraudit/internal/records"
	"github.com/temirov/layeraudit/internal/runcontext"
	"github.com/temirov/layeraudit/internal/timeutil"
	"github.com/temirov/layeraudit/internal/upload"
	"github.com/temirov/layeraudit/internal/utils"
)

const (
	createCapabilityConstant                = "Create"
	missingAuditTableMessageConstant        = "audit: audit table must be provided"
	missingConverterMessageConstant         = "audit: time converter must be provided"
	auditTableErrorTemplateConstant         = "%w: %s: %w"
	auditTableNotEditableTemplateConstant   = "%w: %s advertises capabilities %q"
	collectionErrorTemplateConstant         = "collection interrupted: %w"
	uploadErrorTemplateConstant             = "upload interrupted: %w"
	runStartedMessageConstant               = "Starting layer audit"
	capabilitiesMessageConstant             = "Detected audit table capabilities"
	noRecordsMessageConstant                = "No layer records collected; nothing to upload"
	deltaStatisticsMessageConstant          = "Feature count changes since previous run"
	exportFailedMessageConstant             = "Unable to export skipped layers"
	exportedMessageConstant                 = "Exported skipped layers"
	nothingChangedMessageConstant           = "No changed layers to upload"
	uploadingMessageConstant                = "Uploading layer records"
	runCompletedMessageConstant             = "Audit complete"
	runCompletedWithFailuresMessageConstant = "Audit completed with failures"
	metricsTextfileFailedMessageConstant    = "Unable to write metrics textfile"
	runIDLogFieldConstant                   = "run_id"
	runLabelLogFieldConstant                = "run_label"
	fiscalYearLogFieldConstant              = "fiscal_year"
	modeLogFieldConstant                    = "mode"
	environmentsLogFieldConstant            = "environments"
	tableLogFieldConstant                   = "table"
	capabilitiesLogFieldConstant            = "capabilities"
	netChangeLogFieldConstant               = "net_change"
	increasedLogFieldConstant               = "increased"
	decreasedLogFieldConstant               = "decreased"
	unchangedLogFieldConstant               = "unchanged"
	pathLogFieldConstant                    = "path"
	recordsLogFieldConstant                 = "records"
	processedLogFieldConstant               = "processed"
	succeededLogFieldConstant               = "succeeded"
	shortfallLogFieldConstant               = "shortfall"
	skippedLogFieldConstant                 = "skipped"
	itemsFailedLogFieldConstant             = "items_failed"
	itemsSkippedLogFieldConstant            = "items_skipped"
	listingFailedLogFieldConstant           = "listing_failed"
	runtimeLogFieldConstant                 = "runtime"
	reconciliationLogFieldConstant          = "reconciliation"
	configurationFileLogFieldConstant       = "config_file"
)

// Dependencies wires the collaborators of a Service.
type Dependencies struct {
	Configuration CommandConfiguration
	Environments  []collector.Environment
	AuditTable    gis.AuditTable
	Converter     *timeutil.Converter
	RunContext    runcontext.RunContext
	Exporter      SkippedExporter
	Recorder      *metrics.Recorder
	Clock         runcontext.Clock
	Logger        *zap.Logger
}

// Service coordinates collection, reconciliation, export, and upload for one run.
type Service struct {
	configuration CommandConfiguration
	environments  []collector.Environment
	auditTable    gis.AuditTable
	converter     *timeutil.Converter
	runContext    runcontext.RunContext
	exporter      SkippedExporter
	recorder      *metrics.Recorder
	clock         runcontext.Clock
	logger        *zap.Logger
}

// NewService validates dependencies and applies defaults.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.AuditTable == nil {
		return nil, errors.New(missingAuditTableMessageConstant)
	}
	if dependencies.Converter == nil {
		return nil, errors.New(missingConverterMessageConstant)
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = runcontext.SystemClock{}
	}
	return &Service{
		configuration: dependencies.Configuration.sanitize(),
		environments:  dependencies.Environments,
		auditTable:    dependencies.AuditTable,
		converter:     dependencies.Converter,
		runContext:    dependencies.RunContext,
		exporter:      dependencies.Exporter,
		recorder:      dependencies.Recorder,
		clock:         clock,
		logger:        logger,
	}, nil
}

// Run executes the pipeline. Only an unusable audit table or a cancelled context is an
// error; item, batch, and export failures are reported through the Summary.
func (service *Service) Run(executionContext context.Context) (Summary, error) {
	startedAt := service.clock.Now()
	summary := Summary{
		RunID:      service.runContext.RunID(),
		RunLabel:   service.runContext.RunLabel(),
		FiscalYear: service.converter.FiscalYear(service.runContext.LocalNow()),
		Mode:       RunModeIncremental,
	}
	if service.configuration.FirstRun {
		summary.Mode = RunModeFirstRun
	}
	service.logger.Info(
		runStartedMessageConstant,
		zap.String(runIDLogFieldConstant, summary.RunID),
		zap.String(runLabelLogFieldConstant, summary.RunLabel),
		zap.String(fiscalYearLogFieldConstant, summary.FiscalYear),
		zap.String(modeLogFieldConstant, string(summary.Mode)),
		zap.Int(environmentsLogFieldConstant, len(service.environments)),
		zap.String(configurationFileLogFieldConstant, utils.ConfigurationFile(executionContext)),
	)

	capabilities, validationError := service.validateAuditTable(executionContext)
	if validationError != nil {
		return summary, validationError
	}
	summary.Capabilities = capabilities

	var snapshot reconcile.Snapshot
	if capabilities.DeltaFeatures || !service.configuration.FirstRun {
		snapshot = reconcile.NewSnapshotLoader(service.auditTable, capabilities, service.logger).Load(executionContext, service.runContext.RunTimestamp())
	}

	layerCollector, collectorError := collector.NewCollector(collector.Dependencies{
		Configuration: collector.Configuration{
			MaxItems:    service.configuration.MaxItems,
			WorkerCount: service.configuration.WorkerCount,
			TestItemID:  service.configuration.TestItemID,
		},
		Detector:       editfields.NewDetector(service.logger),
		Converter:      service.converter,
		RunContext:     service.runContext,
		Capabilities:   capabilities,
		PreviousCounts: snapshot.Counts(),
		Recorder:       service.recorder,
		Logger:         service.logger,
	})
	if collectorError != nil {
		return summary, collectorError
	}

	collection, collectError := layerCollector.Collect(executionContext, service.environments)
	summary.ItemsCollected = collection.CountItems(collector.ItemOutcomeCollected)
	summary.ItemsSkipped = collection.CountItems(collector.ItemOutcomeSkipped)
	summary.ItemsFailed = collection.CountItems(collector.ItemOutcomeFailed)
	summary.ListingFailed = len(collection.ListingFailures())
	if collectError != nil {
		return service.finish(summary, startedAt), fmt.Errorf(collectionErrorTemplateConstant, collectError)
	}

	currentRecords := collection.Records()
	summary.Collected = len(currentRecords)
	if len(currentRecords) == 0 {
		service.logger.Warn(noRecordsMessageConstant)
		service.exportSkipped(executionContext, nil)
		return service.finish(summary, startedAt), nil
	}

	if capabilities.DeltaFeatures {
		summary.Delta = reconcile.DeltaStatistics(currentRecords)
		service.logger.Info(
			deltaStatisticsMessageConstant,
			zap.Int64(netChangeLogFieldConstant, summary.Delta.NetChange),
			zap.Int(increasedLogFieldConstant, summary.Delta.Increased),
			zap.Int(decreasedLogFieldConstant, summary.Delta.Decreased),
			zap.Int(unchangedLogFieldConstant, summary.Delta.Unchanged),
		)
	}

	recordsToUpload := currentRecords
	var skippedRecords []records.LayerRecord
	if !service.configuration.FirstRun {
		reconciliation := reconcile.NewEngine(service.logger).Reconcile(currentRecords, snapshot, capabilities)
		summary.Reconciliation = reconciliation.Outcome
		summary.Skipped = len(reconciliation.Skipped)
		recordsToUpload = reconciliation.ToUpload
		skippedRecords = reconciliation.Skipped
		service.recorder.RecordsSkippedUnchanged(summary.Skipped)
	}
	summary.ExportPath = service.exportSkipped(executionContext, skippedRecords)

	if len(recordsToUpload) == 0 {
		service.logger.Info(nothingChangedMessageConstant)
		return service.finish(summary, startedAt), nil
	}

	service.logger.Info(uploadingMessageConstant, zap.Int(recordsLogFieldConstant, len(recordsToUpload)))
	preparedRows := upload.NewPreparer(service.converter, capabilities).PrepareAll(recordsToUpload)
	writeResult := upload.NewWriter(service.auditTable, service.configuration.BatchSize, service.logger).Write(executionContext, preparedRows)
	summary.Processed = writeResult.TotalCount
	summary.Succeeded = writeResult.SuccessCount
	summary.FailedBatches = writeResult.FailedBatches
	service.recorder.UploadResult(writeResult.SuccessCount, writeResult.TotalCount)

	summary = service.finish(summary, startedAt)
	if contextError := executionContext.Err(); contextError != nil {
		return summary, fmt.Errorf(uploadErrorTemplateConstant, contextError)
	}
	return summary, nil
}

// validateAuditTable fails the run when the destination cannot be read or written and
// detects which optional columns it carries.
func (service *Service) validateAuditTable(executionContext context.Context) (records.SchemaCapabilities, error) {
	tableProperties, propertiesError := service.auditTable.Properties(executionContext)
	if propertiesError != nil {
		return records.SchemaCapabilities{}, fmt.Errorf(auditTableErrorTemplateConstant, ErrAuditTableUnavailable, service.auditTable.URL(), propertiesError)
	}
	if !gis.HasCapability(tableProperties.Capabilities, createCapabilityConstant) {
		return records.SchemaCapabilities{}, fmt.Errorf(auditTableNotEditableTemplateConstant, ErrAuditTableNotEditable, service.auditTable.URL(), tableProperties.Capabilities)
	}
	capabilities := records.DetectCapabilities(tableProperties.FieldNames())
	service.logger.Info(
		capabilitiesMessageConstant,
		zap.String(tableLogFieldConstant, service.auditTable.URL()),
		zap.String(capabilitiesLogFieldConstant, capabilities.String()),
	)
	return capabilities, nil
}

func (service *Service) exportSkipped(executionContext context.Context, skipped []records.LayerRecord) string {
	if service.exporter == nil {
		return ""
	}
	exportPath, exportError := service.exporter.Export(executionContext, skipped, service.runContext)
	if exportError != nil {
		service.logger.Warn(exportFailedMessageConstant, zap.Error(exportError))
		return ""
	}
	if len(exportPath) == 0 {
		return ""
	}
	service.logger.Info(exportedMessageConstant, zap.String(pathLogFieldConstant, exportPath), zap.Int(skippedLogFieldConstant, len(skipped)))
	return exportPath
}

func (service *Service) finish(summary Summary, startedAt time.Time) Summary {
	finishedAt := service.clock.Now()
	summary.Runtime = finishedAt.Sub(startedAt)

	completionMessage := runCompletedMessageConstant
	if !summary.Complete() {
		completionMessage = runCompletedWithFailuresMessageConstant
	}
	service.logger.Info(
		completionMessage,
		zap.String(fiscalYearLogFieldConstant, summary.FiscalYear),
		zap.String(modeLogFieldConstant, string(summary.Mode)),
		zap.String(reconciliationLogFieldConstant, string(summary.Reconciliation)),
		zap.Int(recordsLogFieldConstant, summary.Collected),
		zap.Int(skippedLogFieldConstant, summary.Skipped),
		zap.Int(processedLogFieldConstant, summary.Processed),
		zap.Int(succeededLogFieldConstant, summary.Succeeded),
		zap.Int(shortfallLogFieldConstant, summary.Failed()),
		zap.Int(itemsFailedLogFieldConstant, summary.ItemsFailed),
		zap.Int(itemsSkippedLogFieldConstant, summary.ItemsSkipped),
		zap.Int(listingFailedLogFieldConstant, summary.ListingFailed),
		zap.String(runIDLogFieldConstant, summary.RunID),
		zap.Duration(runtimeLogFieldConstant, summary.Runtime),
	)

	service.recorder.RunDuration(summary.Runtime, finishedAt)
	if textfileError := service.recorder.WriteTextfile(service.configuration.Metrics.TextfilePath); textfileError != nil {
		service.logger.Warn(metricsTextfileFailedMessageConstant, zap.Error(textfileError))
	}
	return summary
}
