// Package collector builds one metadata record per sublayer of every monitored
// catalog item. Items are processed by a bounded worker pool inside each
// environment while the environments themselves are collected concurrently.
// Failures are reported per item and never stop the collection of other items.
package collector
