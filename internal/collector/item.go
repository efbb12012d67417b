package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/layeraudit/internal/editfields"
	"github.com/temirov/layeraudit/internal/gis"
	"github.com/temirov/layeraudit/internal/records"
)

const (
	collaborationTagConstant               = "collab"
	authoritativeStatusConstant            = "authoritative"
	skipReasonReferencedServiceConstant    = "referenced service"
	skipReasonCollaborationConstant        = "collaboration tagged"
	skipReasonViewConstant                 = "not a hosted source"
	defaultSubLayerNameTemplateConstant    = "Layer %d"
	itemURLTemplateConstant                = "%s/home/item.html?id=%s&sublayer=%d"
	deltaFormatTemplateConstant            = "%+d"
	deltaSeparatorConstant                 = ", "
	layerCountErrorTemplateConstant        = "layer %d of item %s: %w"
	openServiceFailedMessageConstant       = "Unable to open feature service"
	itemSkippedMessageConstant             = "Skipping item"
	itemCollectedMessageConstant           = "Collected item"
	itemFailedMessageConstant              = "Item collection failed"
	editDateFallbackMessageConstant        = "Using latest edit date field value"
	dataUpdatedItemFallbackMessageConstant = "No edit date available, data updated falls back to item updated"
	reasonLogFieldConstant                 = "reason"
	sublayersLogFieldConstant              = "sublayers"
	deltasLogFieldConstant                 = "deltas"
	layerLogFieldConstant                  = "layer"
)

func (collector *Collector) collectItem(executionContext context.Context, environment Environment, item gis.Item, environmentLogger *zap.Logger) ItemResult {
	itemLogger := environmentLogger.With(zap.String(itemIDLogFieldConstant, item.ID), zap.String(titleLogFieldConstant, item.Title))
	itemResult := ItemResult{EnvironmentName: environment.Name, Item: item, Outcome: ItemOutcomeCollected, Records: []records.LayerRecord{}}

	service, serviceError := environment.Portal.OpenService(executionContext, item)
	if serviceError != nil {
		itemLogger.Warn(openServiceFailedMessageConstant, zap.Error(serviceError))
		itemResult.Outcome = ItemOutcomeFailed
		itemResult.Err = serviceError
		return itemResult
	}

	if skipReason := skipReasonFor(environment, item, service); len(skipReason) > 0 {
		itemLogger.Info(itemSkippedMessageConstant, zap.String(reasonLogFieldConstant, skipReason))
		itemResult.Outcome = ItemOutcomeSkipped
		itemResult.SkipReason = skipReason
		return itemResult
	}

	currentItem := auditedItem{
		environment:     environment,
		item:            item,
		service:         service,
		isAuthoritative: strings.Contains(strings.ToLower(item.ContentStatus), authoritativeStatusConstant),
		itemCreated:     collector.converter.MillisToLocalPointer(item.Created),
		itemUpdated:     collector.resolveItemUpdated(item, service.Properties),
		logger:          itemLogger,
	}

	for _, layer := range service.Layers {
		record, layerError := collector.collectLayer(executionContext, currentItem, layer)
		if layerError != nil {
			itemLogger.Warn(itemFailedMessageConstant, zap.Int(layerLogFieldConstant, layer.Properties().ID), zap.Error(layerError))
			itemResult.Outcome = ItemOutcomeFailed
			itemResult.Err = layerError
			return itemResult
		}
		itemResult.Records = append(itemResult.Records, record)
	}

	itemLogger.Info(itemCollectedMessageConstant, zap.Int(sublayersLogFieldConstant, len(itemResult.Records)), zap.String(deltasLogFieldConstant, collector.formatDeltas(itemResult.Records)))
	return itemResult
}

type auditedItem struct {
	environment     Environment
	item            gis.Item
	service         gis.Service
	isAuthoritative bool
	itemCreated     *time.Time
	itemUpdated     time.Time
	logger          *zap.Logger
}

// skipReasonFor applies the cloud environment rules: referenced services, collaboration
// copies and views are audited only from their authoritative source environment.
func skipReasonFor(environment Environment, item gis.Item, service gis.Service) string {
	if !environment.IsOnline() {
		return ""
	}
	serviceURL := service.URL
	if len(serviceURL) == 0 {
		serviceURL = item.URL
	}
	if len(serviceURL) > 0 && !hostedByEnvironment(serviceURL, environment.hostedServiceDomain()) {
		return skipReasonReferencedServiceConstant
	}
	if item.HasTag(collaborationTagConstant) {
		return skipReasonCollaborationConstant
	}
	if !isHostedSource(item) {
		return skipReasonViewConstant
	}
	return ""
}

func hostedByEnvironment(serviceURL string, hostedServiceDomain string) bool {
	parsedURL, parseError := url.Parse(serviceURL)
	if parseError != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsedURL.Host), hostedServiceDomain)
}

// resolveItemUpdated walks serviceLastEditDate, the service data edit date, the item
// modification date and finally the run start.
func (collector *Collector) resolveItemUpdated(item gis.Item, serviceProperties gis.ServiceProperties) time.Time {
	serviceEditDate := serviceProperties.ServiceLastEditDate
	if serviceEditDate == 0 && serviceProperties.EditingInfo != nil {
		serviceEditDate = serviceProperties.EditingInfo.DataLastEditDate
	}
	if serviceUpdated, converted := collector.converter.MillisToLocal(serviceEditDate); converted {
		return serviceUpdated
	}
	if itemModified, converted := collector.converter.MillisToLocal(item.Modified); converted {
		return itemModified
	}
	return collector.runContext.LocalNow()
}

func (collector *Collector) collectLayer(executionContext context.Context, currentItem auditedItem, layer gis.Layer) (records.LayerRecord, error) {
	properties := layer.Properties()
	editDates := editfields.ExtractEditDates(properties, currentItem.service.Properties)

	dataUpdated, resolved := collector.converter.MillisToLocal(editDates.DataUpdated)
	if !resolved {
		dataUpdated, resolved = collector.converter.MillisToLocal(collector.detector.LatestEditDate(executionContext, layer))
		if resolved {
			currentItem.logger.Debug(editDateFallbackMessageConstant, zap.Int(layerLogFieldConstant, properties.ID))
		}
	}
	if !resolved {
		currentItem.logger.Debug(dataUpdatedItemFallbackMessageConstant, zap.Int(layerLogFieldConstant, properties.ID))
		dataUpdated = currentItem.itemUpdated
	}

	totalFeatures, countError := layer.Count(executionContext, "")
	if countError != nil {
		return records.LayerRecord{}, fmt.Errorf(layerCountErrorTemplateConstant, properties.ID, currentItem.item.ID, countError)
	}

	subLayerName := strings.TrimSpace(properties.Name)
	if len(subLayerName) == 0 {
		subLayerName = fmt.Sprintf(defaultSubLayerNameTemplateConstant, properties.ID)
	}

	itemUpdated := currentItem.itemUpdated
	record := records.LayerRecord{
		EnvironmentName: currentItem.environment.Name,
		ItemID:          currentItem.item.ID,
		SubLayerID:      properties.ID,
		LayerName:       currentItem.item.Title,
		SubLayerName:    subLayerName,
		Owner:           currentItem.item.Owner,
		LastEditedUser:  collector.detector.LastEditor(executionContext, layer),
		CreatedUser:     collector.detector.LastCreator(executionContext, layer),
		ItemCreated:     currentItem.itemCreated,
		ItemUpdated:     &itemUpdated,
		DataUpdated:     dataUpdated,
		SchemaUpdated:   collector.converter.MillisToLocalPointer(editDates.SchemaUpdated),
		FiscalYear:      collector.converter.FiscalYear(dataUpdated),
		ReportMonth:     collector.converter.MonthFloor(dataUpdated),
		TotalFeatures:   totalFeatures,
		IsAuthoritative: currentItem.isAuthoritative,
		RunID:           collector.runContext.RunID(),
		RunTimestamp:    collector.runContext.RunTimestamp(),
		RunLabel:        collector.runContext.RunLabel(),
		TimeZone:        currentItem.environment.TimeZoneTag(),
		ItemURL:         buildItemURL(currentItem.environment.PortalURL, currentItem.item.ID, properties.ID),
	}
	if collector.capabilities.DeltaFeatures {
		delta := collector.delta(record, totalFeatures)
		record.DeltaFeatures = &delta
	}
	return record, nil
}

// delta is the change against the previous count of the same identity key, or 0 for a
// layer seen for the first time or one whose prior count the destination cannot identify.
func (collector *Collector) delta(record records.LayerRecord, totalFeatures int64) int64 {
	if !record.ComparableWithin(collector.capabilities) {
		return 0
	}
	previousCount, found := collector.previousCounts[record.KeyWithin(collector.capabilities)]
	if !found {
		return 0
	}
	return totalFeatures - previousCount
}

func buildItemURL(portalURL string, itemID string, subLayerID int) string {
	trimmedPortalURL := strings.TrimRight(strings.TrimSpace(portalURL), "/")
	if len(trimmedPortalURL) == 0 {
		return ""
	}
	return fmt.Sprintf(itemURLTemplateConstant, trimmedPortalURL, url.QueryEscape(itemID), subLayerID)
}

func (collector *Collector) formatDeltas(layerRecords []records.LayerRecord) string {
	if !collector.capabilities.DeltaFeatures {
		return ""
	}
	nonZeroDeltas := make([]string, 0)
	for _, record := range layerRecords {
		if delta := record.Delta(); delta != 0 {
			nonZeroDeltas = append(nonZeroDeltas, fmt.Sprintf(deltaFormatTemplateConstant, delta))
		}
	}
	return strings.Join(nonZeroDeltas, deltaSeparatorConstant)
}
