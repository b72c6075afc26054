package crdt

// LWWRegister is a Last-Write-Wins register CRDT. It is an immutable
// value: Set returns a new register rather than mutating in place, so
// callers hold onto a consistent snapshot even while concurrently
// constructing a merge.
type LWWRegister[T any] struct {
	value     T
	timestamp int64
	replica   string
	hasValue  bool
}

// NewLWWRegister returns an empty register (no value, timestamp 0).
func NewLWWRegister[T any]() LWWRegister[T] {
	return LWWRegister[T]{}
}

// Set returns a new register with val stamped at ts by replica. Per
// spec, the caller supplies ts (typically wall-clock milliseconds) so
// that replay and testing can control timestamps precisely.
func (r LWWRegister[T]) Set(val T, ts int64, replica string) LWWRegister[T] {
	return LWWRegister[T]{value: val, timestamp: ts, replica: replica, hasValue: true}
}

// Get returns the current value, its timestamp, and whether the
// register has ever been set.
func (r LWWRegister[T]) Get() (T, int64, bool) {
	return r.value, r.timestamp, r.hasValue
}

// Merge returns a new register holding whichever side's write should
// win: the higher timestamp, with ties broken by the lexicographically
// larger replica id.
func (r LWWRegister[T]) Merge(other LWWRegister[T]) LWWRegister[T] {
	switch {
	case !r.hasValue:
		return other
	case !other.hasValue:
		return r
	case other.timestamp > r.timestamp:
		return other
	case other.timestamp < r.timestamp:
		return r
	case other.replica > r.replica:
		return other
	default:
		return r
	}
}
