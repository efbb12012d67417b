// Package credentials resolves portal tokens from declarations such as
// "env:ARCGIS_ONLINE_TOKEN" or "file:~/.arcgis/enterprise.token".
package credentials
