package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/layeraudit/internal/arcgis"
	"github.com/temirov/layeraudit/internal/export"
	"github.com/temirov/layeraudit/internal/metrics"
	"github.com/temirov/layeraudit/internal/runcontext"
	"github.com/temirov/layeraudit/internal/timeutil"
	"github.com/temirov/layeraudit/internal/utils"
	"github.com/temirov/layeraudit/internal/utils/flags"
	pathutils "github.com/temirov/layeraudit/internal/utils/path"
)

const (
	commandUseConstant                    = "audit"
	commandShortDescriptionConstant       = "Audit hosted layers and record feature count changes"
	commandLongDescriptionConstant        = "audit collects per-layer metadata from every configured portal, compares feature counts with the previous run, and appends the changed layers to the audit table."
	runCommandUseConstant                 = "run"
	runCommandShortDescriptionConstant    = "Run one layer audit"
	configCommandUseConstant              = "config"
	configCommandShortDescriptionConstant = "Print the effective audit configuration as YAML"
	unexpectedArgumentsMessageConstant    = "audit does not accept positional arguments"
	commandExecutionErrorTemplateConstant = "layer audit failed: %w"
	configurationErrorTemplateConstant    = "invalid audit configuration: %w"
	configurationEncodeErrorTemplate      = "unable to encode configuration: %w"
	flagMaxItemsNameConstant              = "max-items"
	flagMaxItemsDescriptionConstant       = "Maximum number of feature services to scan per environment"
	flagWorkersNameConstant               = "workers"
	flagWorkersDescriptionConstant        = "Concurrent item workers per environment"
	flagBatchSizeNameConstant             = "batch-size"
	flagBatchSizeDescriptionConstant      = "Records per audit table write"
	flagFirstRunNameConstant              = "first-run"
	flagFirstRunDescriptionConstant       = "Upload every layer without filtering unchanged ones"
	flagTimeZoneNameConstant              = "time-zone"
	flagTimeZoneDescriptionConstant       = "IANA time zone used for local timestamps"
	flagTestItemNameConstant              = "test-item"
	flagTestItemDescriptionConstant       = "Audit a single item id instead of searching"
	logFileNameTemplateConstant           = "audit_log_%s.txt"
	logFileExtensionConstant              = ".txt"
	logFileAttachFailedMessageConstant    = "Unable to write the run log file; continuing with console logging only"
	logRetentionFailedMessageConstant     = "Unable to remove expired log files"
	logRetentionRemovedMessageConstant    = "Removed expired log files"
	mirrorUnavailableMessageConstant      = "S3 export mirror unavailable; exports stay local"
	removedLogFieldConstant               = "removed"
	summaryOutputTemplateConstant         = "%s %s audit (%s): collected %d, skipped unchanged %d, uploaded %d of %d, shortfall %d, items failed %d, run %s, runtime %s\n"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the loaded audit configuration.
type ConfigurationProvider func() CommandConfiguration

// LogFileAttacher tees logger into filePath; the returned function closes the file.
type LogFileAttacher func(logger *zap.Logger, filePath string) (*zap.Logger, func() error, error)

// CommandBuilder assembles the audit cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	LogFileAttacher       LogFileAttacher
	EnvironmentFactory    EnvironmentFactory
	AuditTableOpener      AuditTableOpener
	TokenResolver         TokenResolver
	HTTPClient            arcgis.HTTPClient
	Clock                 runcontext.Clock
	IdentifierGenerator   runcontext.IdentifierGenerator
}

type runFlagValues struct {
	firstRun bool
}

// Build constructs the audit command with its run and config subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	flagValues := &runFlagValues{}
	runCommand := &cobra.Command{
		Use:   runCommandUseConstant,
		Short: runCommandShortDescriptionConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, arguments, flagValues)
		},
	}
	defaults := DefaultCommandConfiguration()
	runCommand.Flags().Int(flagMaxItemsNameConstant, defaults.MaxItems, flagMaxItemsDescriptionConstant)
	runCommand.Flags().Int(flagWorkersNameConstant, defaults.WorkerCount, flagWorkersDescriptionConstant)
	runCommand.Flags().Int(flagBatchSizeNameConstant, defaults.BatchSize, flagBatchSizeDescriptionConstant)
	flags.AddToggleFlag(runCommand.Flags(), &flagValues.firstRun, flagFirstRunNameConstant, defaults.FirstRun, flagFirstRunDescriptionConstant)
	runCommand.Flags().String(flagTimeZoneNameConstant, defaults.TimeZone, flagTimeZoneDescriptionConstant)
	runCommand.Flags().String(flagTestItemNameConstant, "", flagTestItemDescriptionConstant)

	configCommand := &cobra.Command{
		Use:   configCommandUseConstant,
		Short: configCommandShortDescriptionConstant,
		RunE:  builder.printConfiguration,
	}

	command.AddCommand(runCommand, configCommand)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string, flagValues *runFlagValues) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.applyRunFlags(command, builder.resolveConfiguration(), flagValues).sanitize()
	if validationError := configuration.validate(); validationError != nil {
		return fmt.Errorf(configurationErrorTemplateConstant, validationError)
	}

	converter, converterError := timeutil.NewConverter(configuration.TimeZone, 0)
	if converterError != nil {
		return fmt.Errorf(configurationErrorTemplateConstant, converterError)
	}
	clock := builder.resolveClock()
	runContext := runcontext.New(clock, converter.Location(), builder.IdentifierGenerator)

	logger, closeLogFile := builder.attachRunLog(builder.resolveLogger(), configuration, runContext)
	defer func() { _ = closeLogFile() }()

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	openAuditTable := ResolveAuditTableOpener(builder.AuditTableOpener, builder.TokenResolver, builder.HTTPClient, logger)
	auditTable, releaseAuditTable, openError := openAuditTable(executionContext, configuration.AuditTable)
	if openError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, openError)
	}
	defer func() { _ = releaseAuditTable() }()

	buildEnvironments := ResolveEnvironmentFactory(builder.EnvironmentFactory, builder.TokenResolver, builder.HTTPClient, logger)
	environments, environmentsError := buildEnvironments(executionContext, configuration.Environments)
	if environmentsError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, environmentsError)
	}

	service, serviceError := NewService(Dependencies{
		Configuration: configuration,
		Environments:  environments,
		AuditTable:    auditTable,
		Converter:     converter,
		RunContext:    runContext,
		Exporter:      builder.buildExporter(executionContext, configuration, logger),
		Recorder:      metrics.NewRecorder(),
		Clock:         clock,
		Logger:        logger,
	})
	if serviceError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, serviceError)
	}

	summary, runError := service.Run(executionContext)
	writeSummary(command.OutOrStdout(), summary)
	if runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) applyRunFlags(command *cobra.Command, configuration CommandConfiguration, flagValues *runFlagValues) CommandConfiguration {
	flagSet := command.Flags()
	if flagSet.Changed(flagMaxItemsNameConstant) {
		configuration.MaxItems, _ = flagSet.GetInt(flagMaxItemsNameConstant)
	}
	if flagSet.Changed(flagWorkersNameConstant) {
		configuration.WorkerCount, _ = flagSet.GetInt(flagWorkersNameConstant)
	}
	if flagSet.Changed(flagBatchSizeNameConstant) {
		configuration.BatchSize, _ = flagSet.GetInt(flagBatchSizeNameConstant)
	}
	if flagSet.Changed(flagFirstRunNameConstant) {
		configuration.FirstRun = flagValues.firstRun
	}
	if flagSet.Changed(flagTimeZoneNameConstant) {
		configuration.TimeZone, _ = flagSet.GetString(flagTimeZoneNameConstant)
	}
	if flagSet.Changed(flagTestItemNameConstant) {
		configuration.TestItemID, _ = flagSet.GetString(flagTestItemNameConstant)
	}
	return configuration
}

// attachRunLog removes expired run logs and tees logger into a new file for this run.
// Failures only degrade logging.
func (builder *CommandBuilder) attachRunLog(logger *zap.Logger, configuration CommandConfiguration, runContext runcontext.RunContext) (*zap.Logger, func() error) {
	noClose := func() error { return nil }
	logDirectory := pathutils.NewHomeExpander().Expand(configuration.LogDirectory)

	removedPaths, retentionError := utils.CleanupOldFiles(logDirectory, configuration.LogRetentionDays, []string{logFileExtensionConstant}, runContext.LocalNow())
	if retentionError != nil {
		logger.Warn(logRetentionFailedMessageConstant, zap.Error(retentionError))
	}
	if len(removedPaths) > 0 {
		logger.Info(logRetentionRemovedMessageConstant, zap.Int(removedLogFieldConstant, len(removedPaths)))
	}

	attachLogFile := builder.LogFileAttacher
	if attachLogFile == nil {
		attachLogFile = utils.NewLoggerFactory().AttachFileOutput
	}
	logFilePath := filepath.Join(logDirectory, fmt.Sprintf(logFileNameTemplateConstant, runContext.FileStamp()))
	teedLogger, closeLogFile, attachError := attachLogFile(logger, logFilePath)
	if attachError != nil {
		logger.Warn(logFileAttachFailedMessageConstant, zap.Error(attachError))
		return logger, noClose
	}
	return teedLogger, closeLogFile
}

func (builder *CommandBuilder) buildExporter(executionContext context.Context, configuration CommandConfiguration, logger *zap.Logger) SkippedExporter {
	var mirror export.Mirror
	if configuration.Exports.S3.Enabled() {
		s3Mirror, mirrorError := export.NewS3Mirror(executionContext, configuration.Exports.S3)
		if mirrorError != nil {
			logger.Warn(mirrorUnavailableMessageConstant, zap.Error(mirrorError))
		} else {
			mirror = s3Mirror
		}
	}
	return export.NewExporter(export.Configuration{
		Directory:     pathutils.NewHomeExpander().Expand(configuration.ExportDirectory),
		RetentionDays: configuration.ExportRetentionDays,
	}, mirror, logger)
}

func (builder *CommandBuilder) printConfiguration(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}
	encoder := yaml.NewEncoder(command.OutOrStdout())
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(builder.resolveConfiguration().sanitize()); encodeError != nil {
		return fmt.Errorf(configurationEncodeErrorTemplate, encodeError)
	}
	return encoder.Close()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveClock() runcontext.Clock {
	if builder.Clock == nil {
		return runcontext.SystemClock{}
	}
	return builder.Clock
}

func writeSummary(writer io.Writer, summary Summary) {
	fmt.Fprintf(
		writer,
		summaryOutputTemplateConstant,
		summary.FiscalYear,
		summary.RunLabel,
		summary.Mode,
		summary.Collected,
		summary.Skipped,
		summary.Succeeded,
		summary.Processed,
		summary.Failed(),
		summary.ItemsFailed,
		summary.RunID,
		summary.Runtime,
	)
}
