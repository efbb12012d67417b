// Package gis declares the contract layeraudit expects from a hosted GIS
// metadata provider.
//
// It models catalog items, feature services and their layers, the destination
// audit table, and the generic attribute rows exchanged with both. Concrete
// bindings live in the arcgis and auditstore packages; the collector,
// reconciliation and upload packages depend only on these interfaces.
package gis
