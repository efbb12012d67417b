package gis

import "context"

// Layer exposes a single queryable layer of a feature service.
type Layer interface {
	URL() string
	Properties() LayerProperties
	Count(executionContext context.Context, where string) (int64, error)
	Query(executionContext context.Context, parameters QueryParameters) ([]Row, error)
}

// Portal exposes catalog access for one server environment.
type Portal interface {
	SearchItems(executionContext context.Context, query string, maxItems int) ([]Item, error)
	GetItem(executionContext context.Context, itemID string) (Item, error)
	OpenService(executionContext context.Context, item Item) (Service, error)
}

// AuditTable exposes the destination table receiving audit records.
type AuditTable interface {
	URL() string
	Properties(executionContext context.Context) (TableProperties, error)
	Query(executionContext context.Context, parameters QueryParameters) ([]Row, error)
	AddRecords(executionContext context.Context, rows []Row) ([]AddResult, error)
}
