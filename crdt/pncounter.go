package crdt

// PNCounter is a Positive-Negative counter CRDT: two per-replica
// grow-only maps, one for increments and one for decrements, joined
// by component-wise max on merge. The value is the sum of increments
// minus the sum of decrements.
type PNCounter struct {
	incs map[string]uint64
	decs map[string]uint64
}

// NewPNCounter returns a zeroed PN-Counter.
func NewPNCounter() PNCounter {
	return PNCounter{incs: make(map[string]uint64), decs: make(map[string]uint64)}
}

// Increment returns a new counter with replica's increment total
// raised by delta.
func (c PNCounter) Increment(replica string, delta uint64) PNCounter {
	incs := cloneCounts(c.incs)
	incs[replica] += delta
	return PNCounter{incs: incs, decs: c.decs}
}

// Decrement returns a new counter with replica's decrement total
// raised by delta.
func (c PNCounter) Decrement(replica string, delta uint64) PNCounter {
	decs := cloneCounts(c.decs)
	decs[replica] += delta
	return PNCounter{incs: c.incs, decs: decs}
}

// Value returns sum(incs) - sum(decs) as a signed integer.
func (c PNCounter) Value() int64 {
	var total int64
	for _, v := range c.incs {
		total += int64(v)
	}
	for _, v := range c.decs {
		total -= int64(v)
	}
	return total
}

// Merge takes the component-wise max of both underlying maps, which
// keeps each side monotone and makes the merge commutative,
// associative and idempotent.
func (c PNCounter) Merge(other PNCounter) PNCounter {
	return PNCounter{
		incs: maxCounts(c.incs, other.incs),
		decs: maxCounts(c.decs, other.decs),
	}
}

func cloneCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func maxCounts(a, b map[string]uint64) map[string]uint64 {
	out := cloneCounts(a)
	for k, v := range b {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}
