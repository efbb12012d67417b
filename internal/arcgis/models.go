package arcgis

import (
	"encoding/json"

	"github.com/temirov/layeraudit/internal/gis"
)

type itemPayload struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Owner         string      `json:"owner"`
	Type          string      `json:"type"`
	URL           string      `json:"url"`
	ContentStatus string      `json:"contentStatus"`
	Tags          []string    `json:"tags"`
	TypeKeywords  []string    `json:"typeKeywords"`
	Created       json.Number `json:"created"`
	Modified      json.Number `json:"modified"`
}

func (payload itemPayload) toItem() gis.Item {
	return gis.Item{
		ID:            payload.ID,
		Title:         payload.Title,
		Owner:         payload.Owner,
		Type:          payload.Type,
		URL:           payload.URL,
		ContentStatus: payload.ContentStatus,
		Tags:          payload.Tags,
		TypeKeywords:  payload.TypeKeywords,
		Created:       numberValue(payload.Created),
		Modified:      numberValue(payload.Modified),
	}
}

type searchPayload struct {
	Total     int           `json:"total"`
	Start     int           `json:"start"`
	Num       int           `json:"num"`
	NextStart int           `json:"nextStart"`
	Results   []itemPayload `json:"results"`
}

type editingInfoPayload struct {
	LastEditDate       json.Number `json:"lastEditDate"`
	DataLastEditDate   json.Number `json:"dataLastEditDate"`
	SchemaLastEditDate json.Number `json:"schemaLastEditDate"`
}

func (payload *editingInfoPayload) toEditingInfo() *gis.EditingInfo {
	if payload == nil {
		return nil
	}
	return &gis.EditingInfo{
		LastEditDate:       numberValue(payload.LastEditDate),
		DataLastEditDate:   numberValue(payload.DataLastEditDate),
		SchemaLastEditDate: numberValue(payload.SchemaLastEditDate),
	}
}

type layerReferencePayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type servicePayload struct {
	Capabilities        string                  `json:"capabilities"`
	ServiceLastEditDate json.Number             `json:"serviceLastEditDate"`
	LastSchemaEditDate  json.Number             `json:"lastSchemaEditDate"`
	EditingInfo         *editingInfoPayload     `json:"editingInfo"`
	Layers              []layerReferencePayload `json:"layers"`
}

func (payload servicePayload) toProperties() gis.ServiceProperties {
	return gis.ServiceProperties{
		Capabilities:        payload.Capabilities,
		ServiceLastEditDate: numberValue(payload.ServiceLastEditDate),
		LastSchemaEditDate:  numberValue(payload.LastSchemaEditDate),
		EditingInfo:         payload.EditingInfo.toEditingInfo(),
	}
}

type fieldPayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func toFields(payloads []fieldPayload) []gis.Field {
	fields := make([]gis.Field, 0, len(payloads))
	for _, payload := range payloads {
		fields = append(fields, gis.Field{Name: payload.Name, Type: payload.Type})
	}
	return fields
}

type layerPayload struct {
	ID                 int                 `json:"id"`
	Name               string              `json:"name"`
	Capabilities       string              `json:"capabilities"`
	Fields             []fieldPayload      `json:"fields"`
	EditFieldsInfo     map[string]any      `json:"editFieldsInfo"`
	EditingInfo        *editingInfoPayload `json:"editingInfo"`
	LastSchemaEditDate json.Number         `json:"lastSchemaEditDate"`
}

func (payload layerPayload) toProperties() gis.LayerProperties {
	editFieldsInfo := make(map[string]string, len(payload.EditFieldsInfo))
	for key, value := range payload.EditFieldsInfo {
		if textValue := gis.StringValue(value); len(textValue) > 0 {
			editFieldsInfo[key] = textValue
		}
	}
	return gis.LayerProperties{
		ID:                 payload.ID,
		Name:               payload.Name,
		Capabilities:       payload.Capabilities,
		Fields:             toFields(payload.Fields),
		EditFieldsInfo:     editFieldsInfo,
		EditingInfo:        payload.EditingInfo.toEditingInfo(),
		LastSchemaEditDate: numberValue(payload.LastSchemaEditDate),
	}
}

type tablePayload struct {
	Capabilities string         `json:"capabilities"`
	Fields       []fieldPayload `json:"fields"`
}

type countPayload struct {
	Count json.Number `json:"count"`
}

type featurePayload struct {
	Attributes map[string]any `json:"attributes"`
}

type queryPayload struct {
	Features              []featurePayload `json:"features"`
	ExceededTransferLimit bool             `json:"exceededTransferLimit"`
}

type addResultPayload struct {
	Success bool `json:"success"`
	Error   *struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type addFeaturesPayload struct {
	AddResults []addResultPayload `json:"addResults"`
}

func numberValue(number json.Number) int64 {
	if len(number) == 0 {
		return 0
	}
	value, numeric := gis.IntegerValue(number)
	if !numeric {
		return 0
	}
	return value
}
