package audit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/layeraudit/internal/collector"
	"github.com/temirov/layeraudit/internal/export"
	"github.com/temirov/layeraudit/internal/upload"
)

const (
	defaultMaxItemsConstant                  = 1000
	defaultWorkerCountConstant               = 10
	defaultBatchSizeConstant                 = 2000
	defaultTimeZoneConstant                  = "America/Chicago"
	defaultRetentionDaysConstant             = 7
	defaultLogDirectoryConstant              = "logs"
	auditTableDriverArcGISConstant           = "arcgis"
	auditTableDriverSQLiteConstant           = "sqlite"
	environmentsMissingMessageConstant       = "no environments configured; add audit.environments entries"
	environmentNameMissingTemplateConstant   = "environment %d has no name"
	environmentPortalMissingTemplateConstant = "environment %s has no portal_url"
	environmentKindInvalidTemplateConstant   = "environment %s has unsupported kind %q"
	environmentDuplicateTemplateConstant     = "environment %s is configured more than once"
	auditTableURLMissingMessageConstant      = "audit_table.url must be provided for the arcgis driver"
	auditTablePathMissingMessageConstant     = "audit_table.path must be provided for the sqlite driver"
	auditTableDriverInvalidTemplateConstant  = "unsupported audit_table.driver %q"
)

// EnvironmentConfiguration describes one audited portal.
type EnvironmentConfiguration struct {
	Name                string `mapstructure:"name" yaml:"name"`
	Kind                string `mapstructure:"kind" yaml:"kind"`
	PortalURL           string `mapstructure:"portal_url" yaml:"portal_url"`
	HostedServiceDomain string `mapstructure:"hosted_service_domain" yaml:"hosted_service_domain,omitempty"`
	TokenSource         string `mapstructure:"token_source" yaml:"token_source,omitempty"`
}

// AuditTableConfiguration locates the destination audit table.
type AuditTableConfiguration struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	URL         string `mapstructure:"url" yaml:"url,omitempty"`
	Path        string `mapstructure:"path" yaml:"path,omitempty"`
	TokenSource string `mapstructure:"token_source" yaml:"token_source,omitempty"`
}

// ExportsConfiguration configures optional copies of the skipped-layer exports.
type ExportsConfiguration struct {
	S3 export.S3Configuration `mapstructure:"s3" yaml:"s3"`
}

// MetricsConfiguration configures the Prometheus textfile written after each run.
type MetricsConfiguration struct {
	TextfilePath string `mapstructure:"textfile_path" yaml:"textfile_path,omitempty"`
}

// CommandConfiguration captures persistent settings for the audit command.
type CommandConfiguration struct {
	MaxItems            int                        `mapstructure:"max_items" yaml:"max_items"`
	WorkerCount         int                        `mapstructure:"worker_count" yaml:"worker_count"`
	BatchSize           int                        `mapstructure:"batch_size" yaml:"batch_size"`
	FirstRun            bool                       `mapstructure:"first_run" yaml:"first_run"`
	TimeZone            string                     `mapstructure:"time_zone" yaml:"time_zone"`
	LogRetentionDays    int                        `mapstructure:"log_retention_days" yaml:"log_retention_days"`
	ExportRetentionDays int                        `mapstructure:"export_retention_days" yaml:"export_retention_days"`
	Environments        []EnvironmentConfiguration `mapstructure:"environments" yaml:"environments"`
	AuditTable          AuditTableConfiguration    `mapstructure:"audit_table" yaml:"audit_table"`
	ExportDirectory     string                     `mapstructure:"export_directory" yaml:"export_directory"`
	LogDirectory        string                     `mapstructure:"log_directory" yaml:"log_directory"`
	TestItemID          string                     `mapstructure:"test_item_id" yaml:"test_item_id,omitempty"`
	Exports             ExportsConfiguration       `mapstructure:"exports" yaml:"exports"`
	Metrics             MetricsConfiguration       `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultCommandConfiguration returns baseline configuration values for the audit command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		MaxItems:            defaultMaxItemsConstant,
		WorkerCount:         defaultWorkerCountConstant,
		BatchSize:           defaultBatchSizeConstant,
		FirstRun:            true,
		TimeZone:            defaultTimeZoneConstant,
		LogRetentionDays:    defaultRetentionDaysConstant,
		ExportRetentionDays: defaultRetentionDaysConstant,
		AuditTable:          AuditTableConfiguration{Driver: auditTableDriverArcGISConstant},
		ExportDirectory:     export.DefaultDirectory,
		LogDirectory:        defaultLogDirectoryConstant,
	}
}

// sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration

	if sanitized.MaxItems < 1 {
		sanitized.MaxItems = defaultMaxItemsConstant
	}
	if sanitized.WorkerCount < 1 {
		sanitized.WorkerCount = 1
	}
	if sanitized.BatchSize < 1 {
		sanitized.BatchSize = upload.DefaultBatchSize
	}
	sanitized.TimeZone = strings.TrimSpace(sanitized.TimeZone)
	if len(sanitized.TimeZone) == 0 {
		sanitized.TimeZone = defaultTimeZoneConstant
	}
	if sanitized.LogRetentionDays < 0 {
		sanitized.LogRetentionDays = 0
	}
	if sanitized.ExportRetentionDays < 0 {
		sanitized.ExportRetentionDays = 0
	}
	sanitized.ExportDirectory = strings.TrimSpace(sanitized.ExportDirectory)
	if len(sanitized.ExportDirectory) == 0 {
		sanitized.ExportDirectory = export.DefaultDirectory
	}
	sanitized.LogDirectory = strings.TrimSpace(sanitized.LogDirectory)
	if len(sanitized.LogDirectory) == 0 {
		sanitized.LogDirectory = defaultLogDirectoryConstant
	}
	sanitized.TestItemID = strings.TrimSpace(sanitized.TestItemID)
	sanitized.Metrics.TextfilePath = strings.TrimSpace(sanitized.Metrics.TextfilePath)

	sanitized.AuditTable.Driver = strings.ToLower(strings.TrimSpace(sanitized.AuditTable.Driver))
	if len(sanitized.AuditTable.Driver) == 0 {
		sanitized.AuditTable.Driver = auditTableDriverArcGISConstant
	}
	sanitized.AuditTable.URL = strings.TrimSpace(sanitized.AuditTable.URL)
	sanitized.AuditTable.Path = strings.TrimSpace(sanitized.AuditTable.Path)
	sanitized.AuditTable.TokenSource = strings.TrimSpace(sanitized.AuditTable.TokenSource)

	sanitized.Environments = sanitizeEnvironments(configuration.Environments)
	return sanitized
}

func sanitizeEnvironments(raw []EnvironmentConfiguration) []EnvironmentConfiguration {
	sanitized := make([]EnvironmentConfiguration, 0, len(raw))
	for index := range raw {
		environment := raw[index]
		environment.Name = strings.TrimSpace(environment.Name)
		environment.Kind = strings.ToLower(strings.TrimSpace(environment.Kind))
		if len(environment.Kind) == 0 {
			environment.Kind = string(collector.EnvironmentKindEnterprise)
		}
		environment.PortalURL = strings.TrimRight(strings.TrimSpace(environment.PortalURL), "/")
		environment.HostedServiceDomain = strings.TrimSpace(environment.HostedServiceDomain)
		environment.TokenSource = strings.TrimSpace(environment.TokenSource)
		sanitized = append(sanitized, environment)
	}
	return sanitized
}

// validate reports connection settings that make a run impossible.
func (configuration CommandConfiguration) validate() error {
	if len(configuration.Environments) == 0 {
		return errors.New(environmentsMissingMessageConstant)
	}
	seenNames := make(map[string]struct{}, len(configuration.Environments))
	for index, environment := range configuration.Environments {
		if len(environment.Name) == 0 {
			return fmt.Errorf(environmentNameMissingTemplateConstant, index+1)
		}
		if _, duplicate := seenNames[environment.Name]; duplicate {
			return fmt.Errorf(environmentDuplicateTemplateConstant, environment.Name)
		}
		seenNames[environment.Name] = struct{}{}
		if len(environment.PortalURL) == 0 {
			return fmt.Errorf(environmentPortalMissingTemplateConstant, environment.Name)
		}
		switch collector.EnvironmentKind(environment.Kind) {
		case collector.EnvironmentKindOnline, collector.EnvironmentKindEnterprise:
		default:
			return fmt.Errorf(environmentKindInvalidTemplateConstant, environment.Name, environment.Kind)
		}
	}

	switch configuration.AuditTable.Driver {
	case auditTableDriverArcGISConstant:
		if len(configuration.AuditTable.URL) == 0 {
			return errors.New(auditTableURLMissingMessageConstant)
		}
	case auditTableDriverSQLiteConstant:
		if len(configuration.AuditTable.Path) == 0 {
			return errors.New(auditTablePathMissingMessageConstant)
		}
	default:
		return fmt.Errorf(auditTableDriverInvalidTemplateConstant, configuration.AuditTable.Driver)
	}
	return nil
}
