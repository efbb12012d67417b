package reconcile

import (
	"github.com/temirov/layeraudit/internal/gis"
	"github.com/temirov/layeraudit/internal/records"
)

type snapshotEntry struct {
	row          gis.Row
	runTimestamp int64
}

// Snapshot maps every identity key to its most recent record from earlier runs.
type Snapshot struct {
	entries map[records.IdentityKey]snapshotEntry
}

// NewSnapshot keeps, per identity key, the row with the greatest run timestamp strictly
// before currentRunTimestamp. Rows without a numeric run timestamp are ignored and
// ties keep the first row seen.
func NewSnapshot(rows []gis.Row, currentRunTimestamp int64) Snapshot {
	entries := make(map[records.IdentityKey]snapshotEntry)
	for _, row := range rows {
		runTimestamp, numeric := row.Integer(records.FieldRunTimestamp)
		if !numeric || runTimestamp >= currentRunTimestamp {
			continue
		}
		key := records.IdentityKeyFromRow(row)
		existingEntry, exists := entries[key]
		if exists && existingEntry.runTimestamp >= runTimestamp {
			continue
		}
		entries[key] = snapshotEntry{row: row, runTimestamp: runTimestamp}
	}
	return Snapshot{entries: entries}
}

// Len returns the number of distinct identity keys.
func (snapshot Snapshot) Len() int {
	return len(snapshot.entries)
}

// Empty reports whether no prior record exists at all.
func (snapshot Snapshot) Empty() bool {
	return len(snapshot.entries) == 0
}

// Contains reports whether the key existed in an earlier run.
func (snapshot Snapshot) Contains(key records.IdentityKey) bool {
	_, exists := snapshot.entries[key]
	return exists
}

// Record returns the latest prior row for key.
func (snapshot Snapshot) Record(key records.IdentityKey) (gis.Row, bool) {
	entry, exists := snapshot.entries[key]
	return entry.row, exists
}

// Counts returns prior feature counts per key; keys whose count is not numeric are omitted.
func (snapshot Snapshot) Counts() map[records.IdentityKey]int64 {
	counts := make(map[records.IdentityKey]int64, len(snapshot.entries))
	for key, entry := range snapshot.entries {
		totalFeatures, numeric := entry.row.Integer(records.FieldTotalFeatures)
		if !numeric {
			continue
		}
		counts[key] = totalFeatures
	}
	return counts
}
