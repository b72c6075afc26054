package crdt

// tsEntry is one live element in a TombstoneSet, keyed by an
// externally supplied id so multiple logical values can coexist.
type tsEntry[T any] struct {
	value   T
	ts      int64
	replica string
}

// dominates reports whether e is the winning side of a (ts, replica)
// lexicographic tie-break against an entry stamped (ts, replica).
func (e tsEntry[T]) dominates(ts int64, replica string) bool {
	if e.ts != ts {
		return e.ts > ts
	}
	return e.replica > replica
}

type tsTombstone struct {
	ts      int64
	replica string
}

func (t tsTombstone) dominates(ts int64, replica string) bool {
	if t.ts != ts {
		return t.ts > ts
	}
	return t.replica > replica
}

// TombstoneSet is the "Ordered Set (Tombstone)" CRDT from the spec: a
// set of id-addressed elements where removal followed by a
// later-timestamped re-add is allowed to resurrect the element,
// because a tombstone only wins while its timestamp dominates the
// entry's.
type TombstoneSet[T any] struct {
	entries    map[string]tsEntry[T]
	tombstones map[string]tsTombstone
}

// NewTombstoneSet returns an empty TombstoneSet.
func NewTombstoneSet[T any]() TombstoneSet[T] {
	return TombstoneSet[T]{
		entries:    make(map[string]tsEntry[T]),
		tombstones: make(map[string]tsTombstone),
	}
}

// Add inserts value under id, stamped at ts by replica. Refused
// (no-op) if a tombstone for id exists with a timestamp ≥ ts.
func (s TombstoneSet[T]) Add(id string, value T, ts int64, replica string) TombstoneSet[T] {
	if tomb, ok := s.tombstones[id]; ok && tomb.ts >= ts {
		return s
	}
	entries := s.cloneEntries()
	entries[id] = tsEntry[T]{value: value, ts: ts, replica: replica}
	return TombstoneSet[T]{entries: entries, tombstones: s.tombstones}
}

// Remove tombstones id at ts by replica. Refused (no-op) if a live
// entry exists with a strictly greater timestamp.
func (s TombstoneSet[T]) Remove(id string, ts int64, replica string) TombstoneSet[T] {
	if entry, ok := s.entries[id]; ok && entry.ts > ts {
		return s
	}
	entries := s.cloneEntries()
	delete(entries, id)
	tombstones := s.cloneTombstones()
	tombstones[id] = tsTombstone{ts: ts, replica: replica}
	return TombstoneSet[T]{entries: entries, tombstones: tombstones}
}

// Has reports whether id is currently visible: an entry exists and
// either there is no tombstone for it, or the entry's timestamp is
// strictly greater than the tombstone's.
func (s TombstoneSet[T]) Has(id string) bool {
	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	tomb, hasTomb := s.tombstones[id]
	return !hasTomb || entry.ts > tomb.ts
}

// Get returns the value stored at id and whether it is visible.
func (s TombstoneSet[T]) Get(id string) (T, bool) {
	if !s.Has(id) {
		var zero T
		return zero, false
	}
	return s.entries[id].value, true
}

// Values returns the visible values (without their ids) ordered
// ascending by (timestamp, replica).
func (s TombstoneSet[T]) Values() []T {
	type kv struct {
		id string
		e  tsEntry[T]
	}
	var visible []kv
	for id, e := range s.entries {
		if s.Has(id) {
			visible = append(visible, kv{id, e})
		}
	}
	sortByTsReplica(visible, func(x kv) (int64, string) { return x.e.ts, x.e.replica })
	out := make([]T, len(visible))
	for i, v := range visible {
		out[i] = v.e.value
	}
	return out
}

// Merge implements the four-step algorithm from the spec: keep the
// dominant entry and dominant tombstone per key, then prune whichever
// of the pair is dominated by the other.
func (s TombstoneSet[T]) Merge(other TombstoneSet[T]) TombstoneSet[T] {
	entries := make(map[string]tsEntry[T], len(s.entries)+len(other.entries))
	for id, e := range s.entries {
		entries[id] = e
	}
	for id, e := range other.entries {
		if cur, ok := entries[id]; !ok || e.dominates(cur.ts, cur.replica) {
			entries[id] = e
		}
	}

	tombstones := make(map[string]tsTombstone, len(s.tombstones)+len(other.tombstones))
	for id, t := range s.tombstones {
		tombstones[id] = t
	}
	for id, t := range other.tombstones {
		if cur, ok := tombstones[id]; !ok || t.dominates(cur.ts, cur.replica) {
			tombstones[id] = t
		}
	}

	for id, tomb := range tombstones {
		if entry, ok := entries[id]; ok && tomb.ts > entry.ts {
			delete(entries, id)
		}
	}
	for id, entry := range entries {
		if tomb, ok := tombstones[id]; ok && entry.ts > tomb.ts {
			delete(tombstones, id)
		}
	}

	return TombstoneSet[T]{entries: entries, tombstones: tombstones}
}

func (s TombstoneSet[T]) cloneEntries() map[string]tsEntry[T] {
	out := make(map[string]tsEntry[T], len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

func (s TombstoneSet[T]) cloneTombstones() map[string]tsTombstone {
	out := make(map[string]tsTombstone, len(s.tombstones))
	for k, v := range s.tombstones {
		out[k] = v
	}
	return out
}
