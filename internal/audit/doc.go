// Package audit runs the layer audit pipeline used by the layeraudit CLI.
//
// Service validates the destination audit table, collects layer records from every
// environment, removes layers whose feature counts did not change since the previous
// run, exports the removed layers, and uploads the rest. CommandBuilder wires the
// pipeline into the audit Cobra command.
package audit
