package crdt

// RGAID globally identifies one RGA element: the replica that created
// it plus that replica's local sequence number at creation time.
type RGAID struct {
	Replica string
	Seq     uint64
}

type rgaEntry[T any] struct {
	id      RGAID
	value   T
	ts      int64
	replica string
	pos     Position
	deleted bool
}

// dominates reports whether e should survive a same-id merge collision
// against a candidate stamped (ts, replica): ties broken by replica,
// matching every other CRDT's tie-break rule in this package.
func (e rgaEntry[T]) dominates(ts int64, replica string) bool {
	if e.ts != ts {
		return e.ts > ts
	}
	return e.replica > replica
}

// RGA is a Replicated Growable Array: a sequence CRDT where each
// element carries a dense Position so that logical order is always
// recoverable by sorting, independent of insertion order at any
// replica.
type RGA[T any] struct {
	replica string
	seq     uint64
	entries map[RGAID]rgaEntry[T]
}

// NewRGA returns an empty sequence local to replica.
func NewRGA[T any](replica string) RGA[T] {
	return RGA[T]{replica: replica, entries: make(map[RGAID]rgaEntry[T])}
}

// visible returns the non-tombstoned entries sorted by Position, with
// equal positions (concurrent inserts on different replicas) ordered
// by (ts, replica) and then by id.
func (r RGA[T]) visible() []rgaEntry[T] {
	out := make([]rgaEntry[T], 0, len(r.entries))
	for _, e := range r.entries {
		if !e.deleted {
			out = append(out, e)
		}
	}
	less := func(a, b rgaEntry[T]) bool {
		if c := a.pos.Compare(b.pos); c != 0 {
			return c < 0
		}
		if a.ts != b.ts {
			return a.ts < b.ts
		}
		if a.replica != b.replica {
			return a.replica < b.replica
		}
		if a.id.Replica != b.id.Replica {
			return a.id.Replica < b.id.Replica
		}
		return a.id.Seq < b.id.Seq
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (r RGA[T]) cloneEntries() map[RGAID]rgaEntry[T] {
	out := make(map[RGAID]rgaEntry[T], len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}

func (r RGA[T]) insert(value T, ts int64, pos Position) (RGA[T], RGAID) {
	id := RGAID{Replica: r.replica, Seq: r.seq + 1}
	entries := r.cloneEntries()
	entries[id] = rgaEntry[T]{id: id, value: value, ts: ts, replica: r.replica, pos: pos}
	return RGA[T]{replica: r.replica, seq: r.seq + 1, entries: entries}, id
}

// Append inserts value after the current last element, stamped with
// ts (wall-clock ms is conventional; callers drive the clock).
func (r RGA[T]) Append(value T, ts int64) (RGA[T], RGAID) {
	visible := r.visible()
	var lastPos Position
	if n := len(visible); n > 0 {
		lastPos = visible[n-1].pos
	}
	return r.insert(value, ts, genPosition(lastPos, nil))
}

// InsertAt inserts value so it lands at visible index idx (0 is the
// new head; idx == Len() appends). Returns a CRDT error if idx is out
// of the inclusive range [0, Len()].
func (r RGA[T]) InsertAt(idx int, value T, ts int64) (RGA[T], RGAID, error) {
	visible := r.visible()
	if idx < 0 || idx > len(visible) {
		return r, RGAID{}, errorf("RGA.InsertAt", "index %d out of range [0,%d]", idx, len(visible))
	}
	var lo, hi Position
	if idx > 0 {
		lo = visible[idx-1].pos
	}
	if idx < len(visible) {
		hi = visible[idx].pos
	}
	next, id := r.insert(value, ts, genPosition(lo, hi))
	return next, id, nil
}

// RemoveAt tombstones the element currently at visible index idx.
func (r RGA[T]) RemoveAt(idx int) (RGA[T], error) {
	visible := r.visible()
	if idx < 0 || idx >= len(visible) {
		return r, errorf("RGA.RemoveAt", "index %d out of range [0,%d)", idx, len(visible))
	}
	return r.delete(visible[idx].id), nil
}

func (r RGA[T]) delete(id RGAID) RGA[T] {
	e, ok := r.entries[id]
	if !ok || e.deleted {
		return r
	}
	entries := r.cloneEntries()
	e.deleted = true
	entries[id] = e
	return RGA[T]{replica: r.replica, seq: r.seq, entries: entries}
}

// ToArray returns the logical sequence of live values in position
// order.
func (r RGA[T]) ToArray() []T {
	visible := r.visible()
	out := make([]T, len(visible))
	for i, e := range visible {
		out[i] = e.value
	}
	return out
}

// Len returns the number of live (non-tombstoned) elements.
func (r RGA[T]) Len() int {
	n := 0
	for _, e := range r.entries {
		if !e.deleted {
			n++
		}
	}
	return n
}

// RGAOp is a remote operation applied to a replica's RGA: either an
// insert (Value/Pos/Ts/Replica populated) or a delete (Delete, ID
// populated).
type RGAOp[T any] struct {
	ID      RGAID
	Value   T
	Pos     Position
	Ts      int64
	Replica string
	Delete  bool
}

// Apply integrates a remote operation. An insert whose id already
// exists is a collision, resolved like any other CRDT tie-break: keep
// whichever side has the larger (ts, replica).
func (r RGA[T]) Apply(op RGAOp[T]) RGA[T] {
	if op.Delete {
		return r.delete(op.ID)
	}
	entries := r.cloneEntries()
	if cur, ok := entries[op.ID]; ok && cur.dominates(op.Ts, op.Replica) {
		return r
	}
	entries[op.ID] = rgaEntry[T]{id: op.ID, value: op.Value, ts: op.Ts, replica: op.Replica, pos: op.Pos}
	seq := r.seq
	if op.ID.Replica == r.replica && op.ID.Seq > seq {
		seq = op.ID.Seq
	}
	return RGA[T]{replica: r.replica, seq: seq, entries: entries}
}

// Merge unions both sides' id→entry maps. On a same-id collision a
// tombstoned (deleted=true) entry always wins over a live one,
// whatever their timestamps; between two entries with the same
// tombstone status the larger (ts, replica) survives. A delete is
// recorded as deleted=true on the entry itself (via Apply/RemoveAt),
// so merge needs no separate tombstone set.
func (r RGA[T]) Merge(other RGA[T]) RGA[T] {
	entries := r.cloneEntries()
	for id, oe := range other.entries {
		le, ok := entries[id]
		if !ok {
			entries[id] = oe
			continue
		}
		if le.deleted != oe.deleted {
			// A tombstone permanently dominates a live duplicate
			// insert for the same id, regardless of timestamp.
			if oe.deleted {
				entries[id] = oe
			}
			continue
		}
		if oe.dominates(le.ts, le.replica) {
			entries[id] = oe
		}
	}
	seq := r.seq
	if other.replica == r.replica && other.seq > seq {
		seq = other.seq
	}
	return RGA[T]{replica: r.replica, seq: seq, entries: entries}
}
