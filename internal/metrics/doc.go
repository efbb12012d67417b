// Package metrics records per-run audit counters in a dedicated Prometheus registry
// and can write them in the node exporter textfile format.
package metrics
