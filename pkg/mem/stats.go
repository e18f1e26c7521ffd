package mem

// Stats aggregates the state of a collection.
type Stats struct {
	// Total counts every record, tombstones included
	Total int `json:"total"`

	// Active counts records without a tombstone
	Active int `json:"active"`

	// Deleted counts tombstoned records
	Deleted int `json:"deleted"`

	// Tags maps each tag to the number of active records carrying it
	Tags map[string]int `json:"tags"`
}

// ComputeStats builds aggregate counts and a tag-frequency histogram
// over the collection. The histogram covers active records only; the
// Deleted count accounts for tombstones.
func ComputeStats(records []MemoryRecord) Stats {
	stats := Stats{
		Total: len(records),
		Tags:  make(map[string]int),
	}

	for _, r := range records {
		if r.Deleted() {
			stats.Deleted++
			continue
		}
		stats.Active++
		for _, t := range r.Tags {
			stats.Tags[t]++
		}
	}

	return stats
}
