// Package crdt implements the conflict-free replicated data types that
// back syncdb's convergence guarantees: a vector clock for causality
// tracking plus a family of state-based CRDTs (CvRDTs) whose Merge
// functions are commutative, associative and idempotent.
package crdt

import "github.com/huandu/go-clone"

// Order is the result of comparing two VClocks under the partial causal
// order they induce. Equal and Concurrent are deliberately the same
// value: the replication loop only ever needs to distinguish "strictly
// dominated" (Less) from everything else.
type Order int

const (
	Less Order = iota
	Greater
	Concurrent
)

// VClock maps a replica identifier to its logical clock counter. A
// missing key is implicitly zero.
type VClock map[string]uint64

// NewVClock returns an empty vector clock.
func NewVClock() VClock {
	return VClock{}
}

// Clone returns a deep copy so callers can treat VClock as an immutable
// value type even though its underlying representation is a map.
func (v VClock) Clone() VClock {
	if v == nil {
		return VClock{}
	}
	return clone.Clone(v).(VClock)
}

// Increment returns a new clock with replica's counter bumped by one.
// The receiver is left untouched.
func (v VClock) Increment(replica string) VClock {
	next := v.Clone()
	next[replica]++
	return next
}

// Get returns the counter for replica, or zero if absent.
func (v VClock) Get(replica string) uint64 {
	return v[replica]
}

// Compare returns Less if v causally precedes other, Greater if v
// causally follows other, and Concurrent otherwise (this collapses
// the mathematical "Equal" case into Concurrent, since the only
// distinction the library's callers ever act on is Less).
func (v VClock) Compare(other VClock) Order {
	allLessOrEqual := true
	allGreaterOrEqual := true

	keys := make(map[string]struct{}, len(v)+len(other))
	for k := range v {
		keys[k] = struct{}{}
	}
	for k := range other {
		keys[k] = struct{}{}
	}

	for k := range keys {
		a, b := v[k], other[k]
		if a < b {
			allGreaterOrEqual = false
		} else if a > b {
			allLessOrEqual = false
		}
	}

	switch {
	case allLessOrEqual && !allGreaterOrEqual:
		return Less
	case allGreaterOrEqual && !allLessOrEqual:
		return Greater
	default:
		return Concurrent
	}
}

// Merge returns the component-wise maximum of v and other: the join
// operation of the vector-clock semilattice. The replication loop uses
// it in place of the clock overwrite when built with WithPreferMerge;
// reconciliation adopts the server's resolved clock as-is and does not
// call it.
func (v VClock) Merge(other VClock) VClock {
	out := v.Clone()
	for k, val := range other {
		if val > out[k] {
			out[k] = val
		}
	}
	return out
}

// Equal reports whether v and other have identical counters in every
// key present in either clock. Distinct from Compare: this is a true
// structural equality check, used by tests.
func (v VClock) Equal(other VClock) bool {
	for k, val := range v {
		if other[k] != val {
			return false
		}
	}
	for k, val := range other {
		if v[k] != val {
			return false
		}
	}
	return true
}
