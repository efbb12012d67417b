package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/temirov/layeraudit/internal/gis"
)

const (
	queryPathConstant                    = "query"
	whereParameterConstant               = "where"
	outFieldsParameterConstant           = "outFields"
	orderByParameterConstant             = "orderByFields"
	recordCountParameterConstant         = "resultRecordCount"
	resultOffsetParameterConstant        = "resultOffset"
	returnGeometryParameterConstant      = "returnGeometry"
	returnCountOnlyParameterConstant     = "returnCountOnly"
	trueValueConstant                    = "true"
	falseValueConstant                   = "false"
	allRowsWhereConstant                 = "1=1"
	allFieldsConstant                    = "*"
	outFieldsSeparatorConstant           = ","
	countQueryErrorTemplateConstant      = "arcgis: count query on %s failed: %w"
	countDecodeErrorTemplateConstant     = "arcgis: count on %s is not an integer: %q"
	projectionQueryErrorTemplateConstant = "arcgis: query on %s failed: %w"
)

// FeatureLayer implements gis.Layer over a FeatureServer or MapServer layer endpoint.
type FeatureLayer struct {
	client     *Client
	url        string
	properties gis.LayerProperties
}

// URL returns the layer endpoint.
func (layer *FeatureLayer) URL() string {
	return layer.url
}

// Properties returns the schema metadata fetched when the layer was opened.
func (layer *FeatureLayer) Properties() gis.LayerProperties {
	return layer.properties
}

// Count runs a count-only query; an empty predicate counts every row.
func (layer *FeatureLayer) Count(executionContext context.Context, where string) (int64, error) {
	parameters := url.Values{}
	parameters.Set(whereParameterConstant, normalizeWhere(where))
	parameters.Set(returnCountOnlyParameterConstant, trueValueConstant)

	var payload countPayload
	if requestError := layer.client.doRequest(executionContext, joinURL(layer.url, queryPathConstant), parameters, &payload); requestError != nil {
		return 0, fmt.Errorf(countQueryErrorTemplateConstant, layer.url, requestError)
	}
	count, numeric := gis.IntegerValue(payload.Count)
	if !numeric {
		return 0, fmt.Errorf(countDecodeErrorTemplateConstant, layer.url, payload.Count.String())
	}
	return count, nil
}

// Query runs a projection query without geometry.
func (layer *FeatureLayer) Query(executionContext context.Context, parameters gis.QueryParameters) ([]gis.Row, error) {
	return queryRows(executionContext, layer.client, layer.url, parameters)
}

// queryRows returns all pages when RecordCount is zero, following resultOffset while the
// server reports exceededTransferLimit.
func queryRows(executionContext context.Context, client *Client, endpoint string, parameters gis.QueryParameters) ([]gis.Row, error) {
	rows := make([]gis.Row, 0)
	offset := 0
	for {
		requestParameters := url.Values{}
		requestParameters.Set(whereParameterConstant, normalizeWhere(parameters.Where))
		requestParameters.Set(outFieldsParameterConstant, normalizeOutFields(parameters.OutFields))
		requestParameters.Set(returnGeometryParameterConstant, falseValueConstant)
		if len(strings.TrimSpace(parameters.OrderBy)) > 0 {
			requestParameters.Set(orderByParameterConstant, parameters.OrderBy)
		}
		if parameters.RecordCount > 0 {
			requestParameters.Set(recordCountParameterConstant, strconv.Itoa(parameters.RecordCount))
		}
		if offset > 0 {
			requestParameters.Set(resultOffsetParameterConstant, strconv.Itoa(offset))
		}

		var payload queryPayload
		if requestError := client.doRequest(executionContext, joinURL(endpoint, queryPathConstant), requestParameters, &payload); requestError != nil {
			return nil, fmt.Errorf(projectionQueryErrorTemplateConstant, endpoint, requestError)
		}
		for _, feature := range payload.Features {
			rows = append(rows, normalizeAttributes(feature.Attributes))
		}
		if parameters.RecordCount > 0 || !payload.ExceededTransferLimit || len(payload.Features) == 0 {
			return rows, nil
		}
		offset += len(payload.Features)
	}
}

func normalizeAttributes(attributes map[string]any) gis.Row {
	row := make(gis.Row, len(attributes))
	for name, value := range attributes {
		if number, isNumber := value.(json.Number); isNumber {
			if integerValue, integerError := number.Int64(); integerError == nil {
				row[name] = integerValue
				continue
			}
			if floatValue, floatError := number.Float64(); floatError == nil {
				row[name] = floatValue
				continue
			}
		}
		row[name] = value
	}
	return row
}

func normalizeWhere(where string) string {
	trimmedWhere := strings.TrimSpace(where)
	if len(trimmedWhere) == 0 {
		return allRowsWhereConstant
	}
	return trimmedWhere
}

func normalizeOutFields(outFields []string) string {
	if len(outFields) == 0 {
		return allFieldsConstant
	}
	return strings.Join(outFields, outFieldsSeparatorConstant)
}
