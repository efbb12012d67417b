package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/layeraudit/internal/records"
	"github.com/temirov/layeraudit/internal/runcontext"
	"github.com/temirov/layeraudit/internal/utils"
)

const (
	// DefaultDirectory receives exports when no directory is configured.
	DefaultDirectory                     = "audit_exports_unchanged_data"
	exportFileNameTemplateConstant       = "skipped_layers_%s.csv"
	csvExtensionConstant                 = ".csv"
	utf8ByteOrderMarkConstant            = "\ufeff"
	directoryPermissionsConstant         = 0o750
	filePermissionsConstant              = 0o640
	createDirectoryErrorTemplateConstant = "export: create directory %s: %w"
	createFileErrorTemplateConstant      = "export: create %s: %w"
	writeErrorTemplateConstant           = "export: write %s: %w"
	noUnchangedLayersMessageConstant     = "No unchanged layers to export"
	cleanupFailedMessageConstant         = "Failed to clean old exports"
	expiredExportsRemovedMessageConstant = "Removed expired exports"
	exportWrittenMessageConstant         = "Skipped layers exported"
	mirrorFailedMessageConstant          = "Export mirror failed"
	mirrorSucceededMessageConstant       = "Export mirrored"
	pathLogFieldConstant                 = "path"
	locationLogFieldConstant             = "location"
	recordsLogFieldConstant              = "records"
	removedLogFieldConstant              = "removed"
)

var exportHeader = []string{
	records.FieldPortal,
	records.FieldLayerName,
	records.FieldItemID,
	records.FieldSubLayerID,
	records.FieldSubLayerName,
	records.FieldFiscalYear,
	records.FieldOwner,
	records.FieldLastEditedUser,
	records.FieldCreatedUser,
	records.FieldItemCreated,
	records.FieldItemUpdated,
	records.FieldDataUpdated,
	records.FieldSchemaUpdated,
	records.FieldReportMonth,
	records.FieldTotalFeatures,
	records.FieldDeltaFeatures,
	records.FieldIsAuthoritative,
	records.FieldRunTimestamp,
	records.FieldRunLabel,
	records.FieldRunID,
	records.FieldTimeZone,
	records.FieldItemURL,
}

// Mirror copies a finished export to secondary storage and returns its location.
type Mirror interface {
	Mirror(executionContext context.Context, localPath string) (string, error)
}

// Configuration controls where exports are written and how long they are kept.
type Configuration struct {
	Directory     string
	RetentionDays int
}

// Exporter writes skipped-layer audit trails.
type Exporter struct {
	configuration Configuration
	mirror        Mirror
	logger        *zap.Logger
	nowProvider   func() time.Time
}

// NewExporter constructs an Exporter; mirror may be nil.
func NewExporter(configuration Configuration, mirror Mirror, logger *zap.Logger) *Exporter {
	if len(strings.TrimSpace(configuration.Directory)) == 0 {
		configuration.Directory = DefaultDirectory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{configuration: configuration, mirror: mirror, logger: logger, nowProvider: time.Now}
}

// Export removes expired exports, then writes skipped to skipped_layers_<local run stamp>.csv
// and returns its path. An empty set writes nothing and returns an empty path. Cleanup and
// mirror failures are logged only.
func (exporter *Exporter) Export(executionContext context.Context, skipped []records.LayerRecord, runContext runcontext.RunContext) (string, error) {
	directory := exporter.configuration.Directory
	removedPaths, cleanupError := utils.CleanupOldFiles(directory, exporter.configuration.RetentionDays, []string{csvExtensionConstant}, exporter.nowProvider())
	if cleanupError != nil {
		exporter.logger.Warn(cleanupFailedMessageConstant, zap.Error(cleanupError))
	}
	if len(removedPaths) > 0 {
		exporter.logger.Info(expiredExportsRemovedMessageConstant, zap.Int(removedLogFieldConstant, len(removedPaths)))
	}

	if len(skipped) == 0 {
		exporter.logger.Info(noUnchangedLayersMessageConstant)
		return "", nil
	}

	if directoryError := os.MkdirAll(directory, directoryPermissionsConstant); directoryError != nil {
		return "", fmt.Errorf(createDirectoryErrorTemplateConstant, directory, directoryError)
	}

	exportPath := filepath.Join(directory, fmt.Sprintf(exportFileNameTemplateConstant, runContext.FileStamp()))
	if writeError := writeCSV(exportPath, skipped); writeError != nil {
		return "", writeError
	}
	exporter.logger.Info(exportWrittenMessageConstant, zap.String(pathLogFieldConstant, exportPath), zap.Int(recordsLogFieldConstant, len(skipped)))

	if exporter.mirror != nil {
		location, mirrorError := exporter.mirror.Mirror(executionContext, exportPath)
		if mirrorError != nil {
			exporter.logger.Warn(mirrorFailedMessageConstant, zap.String(pathLogFieldConstant, exportPath), zap.Error(mirrorError))
		} else {
			exporter.logger.Info(mirrorSucceededMessageConstant, zap.String(locationLogFieldConstant, location))
		}
	}
	return exportPath, nil
}

func writeCSV(exportPath string, skipped []records.LayerRecord) (resultError error) {
	exportFile, createError := os.OpenFile(exportPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePermissionsConstant)
	if createError != nil {
		return fmt.Errorf(createFileErrorTemplateConstant, exportPath, createError)
	}
	defer func() {
		if closeError := exportFile.Close(); closeError != nil && resultError == nil {
			resultError = fmt.Errorf(writeErrorTemplateConstant, exportPath, closeError)
		}
	}()

	if _, bomError := exportFile.WriteString(utf8ByteOrderMarkConstant); bomError != nil {
		return fmt.Errorf(writeErrorTemplateConstant, exportPath, bomError)
	}
	writer := csv.NewWriter(exportFile)
	if headerError := writer.Write(exportHeader); headerError != nil {
		return fmt.Errorf(writeErrorTemplateConstant, exportPath, headerError)
	}
	for _, record := range skipped {
		if rowError := writer.Write(exportRow(record)); rowError != nil {
			return fmt.Errorf(writeErrorTemplateConstant, exportPath, rowError)
		}
	}
	writer.Flush()
	if flushError := writer.Error(); flushError != nil {
		return fmt.Errorf(writeErrorTemplateConstant, exportPath, flushError)
	}
	return nil
}

func exportRow(record records.LayerRecord) []string {
	deltaValue := ""
	if record.DeltaFeatures != nil {
		deltaValue = strconv.FormatInt(*record.DeltaFeatures, 10)
	}
	authoritativeValue := "0"
	if record.IsAuthoritative {
		authoritativeValue = "1"
	}
	return []string{
		record.EnvironmentName,
		record.LayerName,
		record.ItemID,
		strconv.Itoa(record.SubLayerID),
		record.SubLayerName,
		record.FiscalYear,
		record.Owner,
		record.LastEditedUser,
		record.CreatedUser,
		formatInstant(record.ItemCreated),
		formatInstant(record.ItemUpdated),
		formatInstant(&record.DataUpdated),
		formatInstant(record.SchemaUpdated),
		formatInstant(&record.ReportMonth),
		strconv.FormatInt(record.TotalFeatures, 10),
		deltaValue,
		authoritativeValue,
		strconv.FormatInt(record.RunTimestamp, 10),
		record.RunLabel,
		record.RunID,
		record.TimeZone,
		record.ItemURL,
	}
}

func formatInstant(instant *time.Time) string {
	if instant == nil || instant.IsZero() {
		return ""
	}
	return runcontext.ExportTimestamp(*instant)
}
