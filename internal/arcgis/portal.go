package arcgis

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/temirov/layeraudit/internal/gis"
)

const (
	sharingRESTPathConstant            = "sharing/rest"
	searchPathConstant                 = "search"
	contentItemsPathConstant           = "content/items"
	queryParameterConstant             = "q"
	numberParameterConstant            = "num"
	startParameterConstant             = "start"
	searchPageSizeConstant             = 100
	searchFirstStartConstant           = 1
	searchExhaustedStartConstant       = -1
	searchErrorTemplateConstant        = "arcgis: search %q failed: %w"
	itemErrorTemplateConstant          = "arcgis: item %s lookup failed: %w"
	serviceLookupErrorTemplateConstant = "arcgis: service %s lookup failed: %w"
	layerErrorTemplateConstant         = "arcgis: layer %s lookup failed: %w"
	serviceURLMissingTemplateConstant  = "arcgis: item %s has no service URL"
	itemNotFoundTemplateConstant       = "arcgis: item %s not found"
)

// Portal implements gis.Portal for one ArcGIS Online organization or Enterprise portal.
type Portal struct {
	client    *Client
	portalURL string
}

// NewPortal constructs a Portal rooted at portalURL, e.g. "https://www.arcgis.com".
func NewPortal(client *Client, portalURL string) (*Portal, error) {
	if baseURLError := requireBaseURL(portalURL); baseURLError != nil {
		return nil, baseURLError
	}
	return &Portal{client: client, portalURL: strings.TrimRight(strings.TrimSpace(portalURL), "/")}, nil
}

// URL returns the portal root.
func (portal *Portal) URL() string {
	return portal.portalURL
}

// SearchItems pages through search results until maxItems items are gathered or results run out.
func (portal *Portal) SearchItems(executionContext context.Context, query string, maxItems int) ([]gis.Item, error) {
	endpoint := joinURL(portal.portalURL, sharingRESTPathConstant, searchPathConstant)
	items := make([]gis.Item, 0)
	nextStart := searchFirstStartConstant
	for nextStart != searchExhaustedStartConstant && (maxItems <= 0 || len(items) < maxItems) {
		pageSize := searchPageSizeConstant
		if maxItems > 0 && maxItems-len(items) < pageSize {
			pageSize = maxItems - len(items)
		}
		parameters := url.Values{}
		parameters.Set(queryParameterConstant, query)
		parameters.Set(numberParameterConstant, strconv.Itoa(pageSize))
		parameters.Set(startParameterConstant, strconv.Itoa(nextStart))

		var page searchPayload
		if requestError := portal.client.doRequest(executionContext, endpoint, parameters, &page); requestError != nil {
			return nil, fmt.Errorf(searchErrorTemplateConstant, query, requestError)
		}
		for _, result := range page.Results {
			items = append(items, result.toItem())
		}
		if len(page.Results) == 0 || page.NextStart <= 0 {
			nextStart = searchExhaustedStartConstant
			continue
		}
		nextStart = page.NextStart
	}
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}

// GetItem fetches one item by id.
func (portal *Portal) GetItem(executionContext context.Context, itemID string) (gis.Item, error) {
	endpoint := joinURL(portal.portalURL, sharingRESTPathConstant, contentItemsPathConstant, url.PathEscape(strings.TrimSpace(itemID)))
	var payload itemPayload
	if requestError := portal.client.doRequest(executionContext, endpoint, url.Values{}, &payload); requestError != nil {
		return gis.Item{}, fmt.Errorf(itemErrorTemplateConstant, itemID, requestError)
	}
	if len(payload.ID) == 0 {
		return gis.Item{}, fmt.Errorf(itemNotFoundTemplateConstant, itemID)
	}
	return payload.toItem(), nil
}

// OpenService resolves the item's feature service and every layer it declares.
func (portal *Portal) OpenService(executionContext context.Context, item gis.Item) (gis.Service, error) {
	serviceURL := strings.TrimRight(strings.TrimSpace(item.URL), "/")
	if len(serviceURL) == 0 {
		return gis.Service{}, fmt.Errorf(serviceURLMissingTemplateConstant, item.ID)
	}

	var service servicePayload
	if requestError := portal.client.doRequest(executionContext, serviceURL, url.Values{}, &service); requestError != nil {
		return gis.Service{}, fmt.Errorf(serviceLookupErrorTemplateConstant, serviceURL, requestError)
	}

	layers := make([]gis.Layer, 0, len(service.Layers))
	for _, layerReference := range service.Layers {
		layerURL := joinURL(serviceURL, strconv.Itoa(layerReference.ID))
		layer, layerError := openLayer(executionContext, portal.client, layerURL)
		if layerError != nil {
			return gis.Service{}, layerError
		}
		layers = append(layers, layer)
	}

	return gis.Service{URL: serviceURL, Properties: service.toProperties(), Layers: layers}, nil
}

func openLayer(executionContext context.Context, client *Client, layerURL string) (*FeatureLayer, error) {
	var payload layerPayload
	if requestError := client.doRequest(executionContext, layerURL, url.Values{}, &payload); requestError != nil {
		return nil, fmt.Errorf(layerErrorTemplateConstant, layerURL, requestError)
	}
	return &FeatureLayer{client: client, url: layerURL, properties: payload.toProperties()}, nil
}
