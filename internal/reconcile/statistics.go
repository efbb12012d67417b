package reconcile

import "github.com/temirov/layeraudit/internal/records"

// DeltaSummary aggregates feature-count deltas across a set of records.
type DeltaSummary struct {
	NetChange int64
	Increased int
	Decreased int
	Unchanged int
}

// DeltaStatistics summarizes deltas; untracked deltas count as unchanged.
func DeltaStatistics(layerRecords []records.LayerRecord) DeltaSummary {
	var summary DeltaSummary
	for _, record := range layerRecords {
		delta := record.Delta()
		summary.NetChange += delta
		switch {
		case delta > 0:
			summary.Increased++
		case delta < 0:
			summary.Decreased++
		default:
			summary.Unchanged++
		}
	}
	return summary
}
