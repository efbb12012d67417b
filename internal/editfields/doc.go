// Package editfields discovers which layer fields carry creator, editor and
// edit-date semantics, queries the latest user recorded in them, and resolves
// data and schema edit timestamps from service and layer edit tracking metadata.
package editfields
