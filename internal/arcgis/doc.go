// Package arcgis binds the gis provider contract to the ArcGIS REST API.
//
// Requests are form-encoded POSTs carrying a pre-issued token and f=json.
// The API reports most failures inside an HTTP 200 body as an error envelope,
// which the client surfaces as *ServiceError.
package arcgis
