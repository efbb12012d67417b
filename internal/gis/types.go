package gis

import (
	"strings"
)

const (
	tagComparisonCutsetConstant = " \t"
)

// Field describes a single column of a layer or table schema.
type Field struct {
	Name string
	Type string
}

// EditingInfo captures the service- or layer-level edit tracking timestamps in epoch milliseconds.
type EditingInfo struct {
	LastEditDate       int64
	DataLastEditDate   int64
	SchemaLastEditDate int64
}

// Item models a cataloged service as returned by the portal search.
type Item struct {
	ID            string
	Title         string
	Owner         string
	Type          string
	URL           string
	ContentStatus string
	Tags          []string
	TypeKeywords  []string
	Created       int64
	Modified      int64
}

// HasTag reports whether the item carries the tag, ignoring case and surrounding whitespace.
func (item Item) HasTag(tag string) bool {
	wantedTag := strings.TrimSpace(tag)
	for _, candidateTag := range item.Tags {
		if strings.EqualFold(strings.Trim(candidateTag, tagComparisonCutsetConstant), wantedTag) {
			return true
		}
	}
	return false
}

// HasTypeKeyword reports whether the item declares the exact type keyword.
func (item Item) HasTypeKeyword(keyword string) bool {
	for _, candidateKeyword := range item.TypeKeywords {
		if candidateKeyword == keyword {
			return true
		}
	}
	return false
}

// ServiceProperties holds the service-level metadata used for edit date resolution.
type ServiceProperties struct {
	Capabilities        string
	ServiceLastEditDate int64
	LastSchemaEditDate  int64
	EditingInfo         *EditingInfo
}

// LayerProperties holds the schema-level metadata of a single layer.
type LayerProperties struct {
	ID                 int
	Name               string
	Capabilities       string
	Fields             []Field
	EditFieldsInfo     map[string]string
	EditingInfo        *EditingInfo
	LastSchemaEditDate int64
}

// FieldNames lists the declared field names in schema order.
func (properties LayerProperties) FieldNames() []string {
	names := make([]string, 0, len(properties.Fields))
	for _, field := range properties.Fields {
		names = append(names, field.Name)
	}
	return names
}

// Service is a resolved feature service with its layers.
type Service struct {
	URL        string
	Properties ServiceProperties
	Layers     []Layer
}

// QueryParameters configures a field-projection query.
// A zero RecordCount requests every matching row.
type QueryParameters struct {
	Where       string
	OutFields   []string
	OrderBy     string
	RecordCount int
}

// AddResult is the per-row outcome of an append request.
type AddResult struct {
	Success          bool
	ErrorDescription string
}

// TableProperties describes the destination audit table.
type TableProperties struct {
	Capabilities string
	Fields       []Field
}

// FieldNames lists the declared field names in schema order.
func (properties TableProperties) FieldNames() []string {
	names := make([]string, 0, len(properties.Fields))
	for _, field := range properties.Fields {
		names = append(names, field.Name)
	}
	return names
}

// HasCapability reports whether the comma separated capability list contains the capability.
func HasCapability(capabilities string, capability string) bool {
	for _, candidate := range strings.Split(capabilities, ",") {
		if strings.EqualFold(strings.TrimSpace(candidate), capability) {
			return true
		}
	}
	return false
}
