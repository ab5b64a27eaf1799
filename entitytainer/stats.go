package entitytainer

// Stats is a point-in-time summary of hierarchy occupancy.
type Stats struct {
	// Entities is the number of currently added entities.
	Entities int
	// Relationships is the number of live parent/child links.
	Relationships int
	// ArenaBytes is the size of the backing arena.
	ArenaBytes int
	// Tiers breaks occupancy down per tier, in tier order.
	Tiers []TierStats
}

// TierStats describes bucket usage within one tier.
type TierStats struct {
	Capacity     int
	TotalBuckets int
	UsedBuckets  int
	FreeBuckets  int
}

// CollectStats walks the lookup tables and tier descriptors and returns
// current occupancy numbers. It is O(MaxEntities) and meant for monitoring
// and debugging, not the hot path.
func (h *Hierarchy) CollectStats() Stats {
	stats := Stats{
		ArenaBytes: len(h.buf),
		Tiers:      make([]TierStats, len(h.tiers)),
	}
	for i := range h.forward {
		if h.forward[i] != locatorNone {
			stats.Entities++
		}
		if h.reverse[i] != NoEntity {
			stats.Relationships++
		}
	}
	for i := range h.tiers {
		t := &h.tiers[i]
		stats.Tiers[i] = TierStats{
			Capacity:     int(t.capacity),
			TotalBuckets: int(t.totalBuckets),
			UsedBuckets:  int(t.usedBuckets),
			FreeBuckets:  int(t.totalBuckets - t.usedBuckets),
		}
	}
	return stats
}
