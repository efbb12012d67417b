package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/layeraudit/internal/editfields"
	"github.com/temirov/layeraudit/internal/gis"
	"github.com/temirov/layeraudit/internal/metrics"
	"github.com/temirov/layeraudit/internal/records"
	"github.com/temirov/layeraudit/internal/runcontext"
	"github.com/temirov/layeraudit/internal/timeutil"
)

const (
	// FeatureServiceSearchQuery lists feature services while excluding hosted tables.
	FeatureServiceSearchQuery                  = `type:"Feature Service" -type:"Hosted Table"`
	hostedServiceKeywordConstant               = "Hosted Service"
	viewServiceKeywordConstant                 = "View Service"
	defaultWorkerCountConstant                 = 1
	missingConverterMessageConstant            = "collector: time converter must be provided"
	searchingMessageConstant                   = "Searching feature services"
	testModeMessageConstant                    = "Test mode: auditing a single item"
	testItemLookupFailedMessageConstant        = "Could not find test item"
	listingFailedMessageConstant               = "Unable to list feature services"
	listedMessageConstant                      = "Found feature services"
	listedHostedSourcesMessageConstant         = "Found feature services, kept hosted sources (views removed)"
	environmentCollectedMessageConstant        = "Collected environment records"
	environmentLogFieldConstant                = "environment"
	itemIDLogFieldConstant                     = "item_id"
	titleLogFieldConstant                      = "title"
	foundLogFieldConstant                      = "found"
	keptLogFieldConstant                       = "kept"
	recordsLogFieldConstant                    = "records"
	itemsLogFieldConstant                      = "items"
	failedLogFieldConstant                     = "failed"
	skippedLogFieldConstant                    = "skipped"
	cancelledItemErrorTemplateConstant         = "collection cancelled before item %s: %w"
	subLayerTrackingUnavailableMessageConstant = "Audit table has no sub_layer_id column; sublayers other than 0 are uploaded on every run"
)

// Dependencies wires the collaborators of a Collector.
type Dependencies struct {
	Configuration  Configuration
	Detector       *editfields.Detector
	Converter      *timeutil.Converter
	RunContext     runcontext.RunContext
	Capabilities   records.SchemaCapabilities
	PreviousCounts map[records.IdentityKey]int64
	Recorder       *metrics.Recorder
	Logger         *zap.Logger
}

// Collector gathers layer records for every environment.
type Collector struct {
	configuration  Configuration
	detector       *editfields.Detector
	converter      *timeutil.Converter
	runContext     runcontext.RunContext
	capabilities   records.SchemaCapabilities
	previousCounts map[records.IdentityKey]int64
	recorder       *metrics.Recorder
	logger         *zap.Logger
}

// NewCollector validates dependencies and applies defaults.
func NewCollector(dependencies Dependencies) (*Collector, error) {
	if dependencies.Converter == nil {
		return nil, errors.New(missingConverterMessageConstant)
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	detector := dependencies.Detector
	if detector == nil {
		detector = editfields.NewDetector(logger)
	}
	configuration := dependencies.Configuration
	if configuration.WorkerCount < 1 {
		configuration.WorkerCount = defaultWorkerCountConstant
	}
	previousCounts := dependencies.PreviousCounts
	if previousCounts == nil {
		previousCounts = map[records.IdentityKey]int64{}
	}
	return &Collector{
		configuration:  configuration,
		detector:       detector,
		converter:      dependencies.Converter,
		runContext:     dependencies.RunContext,
		capabilities:   dependencies.Capabilities,
		previousCounts: previousCounts,
		recorder:       dependencies.Recorder,
		logger:         logger,
	}, nil
}

// Collect processes all environments concurrently and waits for every item task.
// It fails only when executionContext is cancelled.
func (collector *Collector) Collect(executionContext context.Context, environments []Environment) (Result, error) {
	if collector.capabilities.DeltaFeatures && !collector.capabilities.SubLayerID {
		collector.logger.Warn(subLayerTrackingUnavailableMessageConstant)
	}
	environmentResults := make([]EnvironmentResult, len(environments))
	environmentGroup, groupContext := errgroup.WithContext(executionContext)
	for environmentIndex := range environments {
		environment := environments[environmentIndex]
		environmentGroup.Go(func() error {
			environmentResults[environmentIndex] = collector.collectEnvironment(groupContext, environment)
			return nil
		})
	}
	_ = environmentGroup.Wait()

	result := Result{Environments: environmentResults}
	if contextError := executionContext.Err(); contextError != nil {
		return result, contextError
	}
	return result, nil
}

func (collector *Collector) collectEnvironment(executionContext context.Context, environment Environment) EnvironmentResult {
	environmentResult := EnvironmentResult{EnvironmentName: environment.Name}
	environmentLogger := collector.logger.With(zap.String(environmentLogFieldConstant, environment.Name))

	items, listingError := collector.listItems(executionContext, environment, environmentLogger)
	if listingError != nil {
		environmentResult.ListingError = listingError
		return environmentResult
	}

	itemResults := make([]ItemResult, len(items))
	itemGroup := new(errgroup.Group)
	itemGroup.SetLimit(collector.configuration.WorkerCount)
	for itemIndex := range items {
		item := items[itemIndex]
		itemGroup.Go(func() error {
			if contextError := executionContext.Err(); contextError != nil {
				itemResults[itemIndex] = ItemResult{
					EnvironmentName: environment.Name,
					Item:            item,
					Outcome:         ItemOutcomeFailed,
					Err:             fmt.Errorf(cancelledItemErrorTemplateConstant, item.ID, contextError),
				}
				return nil
			}
			itemResults[itemIndex] = collector.collectItem(executionContext, environment, item, environmentLogger)
			return nil
		})
	}
	_ = itemGroup.Wait()

	environmentResult.Items = itemResults
	collectedRecords, failedItems, skippedItems := 0, 0, 0
	for _, itemResult := range itemResults {
		collectedRecords += len(itemResult.Records)
		switch itemResult.Outcome {
		case ItemOutcomeFailed:
			failedItems++
			collector.recorder.ItemFailed(environment.Name)
		case ItemOutcomeSkipped:
			skippedItems++
			collector.recorder.ItemSkipped(environment.Name)
		default:
			collector.recorder.ItemCollected(environment.Name)
		}
	}
	environmentLogger.Info(
		environmentCollectedMessageConstant,
		zap.Int(itemsLogFieldConstant, len(itemResults)),
		zap.Int(recordsLogFieldConstant, collectedRecords),
		zap.Int(failedLogFieldConstant, failedItems),
		zap.Int(skippedLogFieldConstant, skippedItems),
	)
	return environmentResult
}

func (collector *Collector) listItems(executionContext context.Context, environment Environment, environmentLogger *zap.Logger) ([]gis.Item, error) {
	testItemID := strings.TrimSpace(collector.configuration.TestItemID)
	if len(testItemID) > 0 {
		item, itemError := environment.Portal.GetItem(executionContext, testItemID)
		if itemError != nil {
			environmentLogger.Warn(testItemLookupFailedMessageConstant, zap.String(itemIDLogFieldConstant, testItemID), zap.Error(itemError))
			return nil, itemError
		}
		environmentLogger.Info(testModeMessageConstant, zap.String(itemIDLogFieldConstant, item.ID), zap.String(titleLogFieldConstant, item.Title))
		return []gis.Item{item}, nil
	}

	environmentLogger.Info(searchingMessageConstant)
	items, searchError := environment.Portal.SearchItems(executionContext, FeatureServiceSearchQuery, collector.configuration.MaxItems)
	if searchError != nil {
		environmentLogger.Error(listingFailedMessageConstant, zap.Error(searchError))
		return nil, searchError
	}
	items = uniqueItems(items)

	if !environment.IsOnline() {
		environmentLogger.Info(listedMessageConstant, zap.Int(foundLogFieldConstant, len(items)))
		return items, nil
	}
	hostedSources := make([]gis.Item, 0, len(items))
	for _, item := range items {
		if isHostedSource(item) {
			hostedSources = append(hostedSources, item)
		}
	}
	environmentLogger.Info(listedHostedSourcesMessageConstant, zap.Int(foundLogFieldConstant, len(items)), zap.Int(keptLogFieldConstant, len(hostedSources)))
	return hostedSources, nil
}

// uniqueItems keeps the first occurrence of every item id so each sublayer yields one record.
func uniqueItems(items []gis.Item) []gis.Item {
	seen := make(map[string]struct{}, len(items))
	unique := make([]gis.Item, 0, len(items))
	for _, item := range items {
		if _, duplicate := seen[item.ID]; duplicate {
			continue
		}
		seen[item.ID] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

// isHostedSource accepts original hosted services and rejects views.
func isHostedSource(item gis.Item) bool {
	return item.HasTypeKeyword(hostedServiceKeywordConstant) && !item.HasTypeKeyword(viewServiceKeywordConstant)
}
