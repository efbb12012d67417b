package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceConstant                      = "layeraudit"
	environmentLabelConstant               = "environment"
	outcomeLabelConstant                   = "outcome"
	outcomeSucceededConstant               = "succeeded"
	outcomeFailedConstant                  = "failed"
	textfileDirectoryPermissionsConstant   = 0o750
	textfileDirectoryErrorTemplateConstant = "metrics: create directory for %s: %w"
	textfileWriteErrorTemplateConstant     = "metrics: write textfile %s: %w"
)

// Recorder holds the counters of one audit run. A nil Recorder ignores every call.
type Recorder struct {
	registry                *prometheus.Registry
	itemsCollected          *prometheus.CounterVec
	itemsFailed             *prometheus.CounterVec
	itemsSkipped            *prometheus.CounterVec
	recordsSkippedUnchanged prometheus.Counter
	recordsUploaded         *prometheus.CounterVec
	runDuration             prometheus.Gauge
	lastRunTimestamp        prometheus.Gauge
}

// NewRecorder registers the audit metrics in a fresh registry.
func NewRecorder() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		itemsCollected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceConstant,
				Name:      "items_collected_total",
				Help:      "Catalog items whose layers were collected",
			},
			[]string{environmentLabelConstant},
		),
		itemsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceConstant,
				Name:      "items_failed_total",
				Help:      "Catalog items whose collection failed",
			},
			[]string{environmentLabelConstant},
		),
		itemsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceConstant,
				Name:      "items_skipped_total",
				Help:      "Catalog items excluded by environment rules",
			},
			[]string{environmentLabelConstant},
		),
		recordsSkippedUnchanged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespaceConstant,
				Name:      "records_skipped_unchanged_total",
				Help:      "Layer records skipped because nothing changed since the previous run",
			},
		),
		recordsUploaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceConstant,
				Name:      "records_uploaded_total",
				Help:      "Layer records submitted to the audit table by outcome",
			},
			[]string{outcomeLabelConstant},
		),
		runDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespaceConstant,
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last audit run",
			},
		),
		lastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespaceConstant,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time at which the last audit run finished",
			},
		),
	}
	recorder.registry.MustRegister(
		recorder.itemsCollected,
		recorder.itemsFailed,
		recorder.itemsSkipped,
		recorder.recordsSkippedUnchanged,
		recorder.recordsUploaded,
		recorder.runDuration,
		recorder.lastRunTimestamp,
	)
	return recorder
}

// Registry exposes the registry for gathering.
func (recorder *Recorder) Registry() *prometheus.Registry {
	if recorder == nil {
		return nil
	}
	return recorder.registry
}

// ItemCollected counts an item collected in environment.
func (recorder *Recorder) ItemCollected(environment string) {
	if recorder == nil {
		return
	}
	recorder.itemsCollected.WithLabelValues(environment).Inc()
}

// ItemFailed counts an item whose collection failed.
func (recorder *Recorder) ItemFailed(environment string) {
	if recorder == nil {
		return
	}
	recorder.itemsFailed.WithLabelValues(environment).Inc()
}

// ItemSkipped counts an item excluded by environment rules.
func (recorder *Recorder) ItemSkipped(environment string) {
	if recorder == nil {
		return
	}
	recorder.itemsSkipped.WithLabelValues(environment).Inc()
}

// RecordsSkippedUnchanged counts unchanged records left out of the upload.
func (recorder *Recorder) RecordsSkippedUnchanged(count int) {
	if recorder == nil || count <= 0 {
		return
	}
	recorder.recordsSkippedUnchanged.Add(float64(count))
}

// UploadResult records how many of total records were written.
func (recorder *Recorder) UploadResult(successCount int, totalCount int) {
	if recorder == nil {
		return
	}
	recorder.recordsUploaded.WithLabelValues(outcomeSucceededConstant).Add(float64(successCount))
	if failedCount := totalCount - successCount; failedCount > 0 {
		recorder.recordsUploaded.WithLabelValues(outcomeFailedConstant).Add(float64(failedCount))
	}
}

// RunDuration records the run wall time and completion instant.
func (recorder *Recorder) RunDuration(duration time.Duration, finishedAt time.Time) {
	if recorder == nil {
		return
	}
	recorder.runDuration.Set(duration.Seconds())
	recorder.lastRunTimestamp.Set(float64(finishedAt.Unix()))
}

// WriteTextfile writes the registry to path; an empty path is a no-op.
func (recorder *Recorder) WriteTextfile(path string) error {
	trimmedPath := strings.TrimSpace(path)
	if recorder == nil || len(trimmedPath) == 0 {
		return nil
	}
	if directoryError := os.MkdirAll(filepath.Dir(trimmedPath), textfileDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(textfileDirectoryErrorTemplateConstant, trimmedPath, directoryError)
	}
	if writeError := prometheus.WriteToTextfile(trimmedPath, recorder.registry); writeError != nil {
		return fmt.Errorf(textfileWriteErrorTemplateConstant, trimmedPath, writeError)
	}
	return nil
}
