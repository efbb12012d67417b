package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/temirov/layeraudit/internal/gis"
)

const (
	addFeaturesPathConstant                = "addFeatures"
	featuresParameterConstant              = "features"
	tablePropertiesErrorTemplateConstant   = "arcgis: table %s properties lookup failed: %w"
	addFeaturesEncodeErrorTemplateConstant = "arcgis: unable to encode features for %s: %w"
	addFeaturesErrorTemplateConstant       = "arcgis: addFeatures on %s failed: %w"
	addResultCountMismatchTemplateConstant = "arcgis: addFeatures on %s returned %d results for %d features"
)

// FeatureTable implements gis.AuditTable over a hosted table endpoint.
type FeatureTable struct {
	client *Client
	url    string
}

// NewFeatureTable constructs a FeatureTable for tableURL, e.g. ".../FeatureServer/0".
func NewFeatureTable(client *Client, tableURL string) (*FeatureTable, error) {
	if baseURLError := requireBaseURL(tableURL); baseURLError != nil {
		return nil, baseURLError
	}
	return &FeatureTable{client: client, url: strings.TrimRight(strings.TrimSpace(tableURL), "/")}, nil
}

// URL returns the table endpoint.
func (table *FeatureTable) URL() string {
	return table.url
}

// Properties fetches the declared capabilities and fields.
func (table *FeatureTable) Properties(executionContext context.Context) (gis.TableProperties, error) {
	var payload tablePayload
	if requestError := table.client.doRequest(executionContext, table.url, url.Values{}, &payload); requestError != nil {
		return gis.TableProperties{}, fmt.Errorf(tablePropertiesErrorTemplateConstant, table.url, requestError)
	}
	return gis.TableProperties{Capabilities: payload.Capabilities, Fields: toFields(payload.Fields)}, nil
}

// Query reads rows as flat attribute mappings.
func (table *FeatureTable) Query(executionContext context.Context, parameters gis.QueryParameters) ([]gis.Row, error) {
	return queryRows(executionContext, table.client, table.url, parameters)
}

// AddRecords appends rows and reports one result per submitted row.
func (table *FeatureTable) AddRecords(executionContext context.Context, rows []gis.Row) ([]gis.AddResult, error) {
	features := make([]featurePayload, 0, len(rows))
	for _, row := range rows {
		features = append(features, featurePayload{Attributes: row})
	}
	encodedFeatures, encodeError := json.Marshal(features)
	if encodeError != nil {
		return nil, fmt.Errorf(addFeaturesEncodeErrorTemplateConstant, table.url, encodeError)
	}

	parameters := url.Values{}
	parameters.Set(featuresParameterConstant, string(encodedFeatures))

	var payload addFeaturesPayload
	if requestError := table.client.doRequest(executionContext, joinURL(table.url, addFeaturesPathConstant), parameters, &payload); requestError != nil {
		return nil, fmt.Errorf(addFeaturesErrorTemplateConstant, table.url, requestError)
	}
	if len(payload.AddResults) != len(rows) {
		return nil, fmt.Errorf(addResultCountMismatchTemplateConstant, table.url, len(payload.AddResults), len(rows))
	}

	results := make([]gis.AddResult, 0, len(payload.AddResults))
	for _, addResult := range payload.AddResults {
		result := gis.AddResult{Success: addResult.Success}
		if addResult.Error != nil {
			result.ErrorDescription = addResult.Error.Description
		}
		results = append(results, result)
	}
	return results, nil
}
