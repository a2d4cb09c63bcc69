// Package hashroute computes the deterministic partition assignment
// that the commit dispatcher (C1) uses to route a committing context
// to one of N serial lanes.
package hashroute

// PartitionFor hashes aggregateID with the spec's DJB-style 32-bit
// accumulator (seed 23, h = h<<5 - h + codepoint) and maps it into
// [0, n) by absolute-valuing before modulo. The hash is deterministic
// and stable across processes: a given aggregate id always routes to
// the same partition for a fixed n, which is what gives a restarted
// process per-aggregate serial ordering continuity.
func PartitionFor(aggregateID string, n int) int {
	if n <= 0 {
		return 0
	}
	var h int32 = 23
	for _, r := range aggregateID {
		h = (h << 5) - h + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % int64(n))
}
