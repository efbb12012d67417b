// Package timeutil converts between epoch milliseconds and zoned timestamps and
// derives fiscal-year and report-month buckets.
//
// Converter memoizes epoch conversions with a bounded LRU cache because the same
// raw values repeat across every layer of a service.
package timeutil
