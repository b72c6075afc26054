package crdt

import "github.com/goccy/go-json"

// The types in this file are immutable value types built from
// unexported fields, which is what lets every Merge/Set/Add return a
// brand new value instead of mutating shared state (see each type's
// doc comment). That same unexported-ness means the default
// encoding/json behavior would serialize every CRDT as `{}`. Storing a
// CRDT through a Store backend that actually serializes (Redis, disk)
// needs real wire representations, so each type gets a small JSON
// mirror struct and custom Marshal/UnmarshalJSON.

type lwwWire[T any] struct {
	Value     T      `json:"value"`
	Timestamp int64  `json:"timestamp"`
	Replica   string `json:"replica"`
	HasValue  bool   `json:"hasValue"`
}

func (r LWWRegister[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(lwwWire[T]{r.value, r.timestamp, r.replica, r.hasValue})
}

func (r *LWWRegister[T]) UnmarshalJSON(data []byte) error {
	var w lwwWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = LWWRegister[T]{value: w.Value, timestamp: w.Timestamp, replica: w.Replica, hasValue: w.HasValue}
	return nil
}

func (s GSet[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s *GSet[T]) UnmarshalJSON(data []byte) error {
	var values []T
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	out := NewGSet[T]()
	for _, v := range values {
		out = out.Add(v)
	}
	*s = out
	return nil
}

type twoPSetWire[T comparable] struct {
	Adds    []T `json:"adds"`
	Removes []T `json:"removes"`
}

func (s TwoPSet[T]) MarshalJSON() ([]byte, error) {
	w := twoPSetWire[T]{}
	for v := range s.adds {
		w.Adds = append(w.Adds, v)
	}
	for v := range s.removes {
		w.Removes = append(w.Removes, v)
	}
	return json.Marshal(w)
}

func (s *TwoPSet[T]) UnmarshalJSON(data []byte) error {
	var w twoPSetWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	adds := make(map[T]struct{}, len(w.Adds))
	for _, v := range w.Adds {
		adds[v] = struct{}{}
	}
	removes := make(map[T]struct{}, len(w.Removes))
	for _, v := range w.Removes {
		removes[v] = struct{}{}
	}
	*s = TwoPSet[T]{adds: adds, removes: removes}
	return nil
}

type orEntryWire[T any] struct {
	Value     T     `json:"value"`
	Added     int64 `json:"added"`
	Removed   int64 `json:"removed"`
	IsRemoved bool  `json:"isRemoved"`
}

func (m ORMap[T]) MarshalJSON() ([]byte, error) {
	w := make(map[string]orEntryWire[T], len(m.entries))
	for k, e := range m.entries {
		w[k] = orEntryWire[T]{e.value, e.added, e.removed, e.isRemoved}
	}
	return json.Marshal(w)
}

func (m *ORMap[T]) UnmarshalJSON(data []byte) error {
	var w map[string]orEntryWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	entries := make(map[string]orEntry[T], len(w))
	for k, e := range w {
		entries[k] = orEntry[T]{value: e.Value, added: e.Added, removed: e.Removed, isRemoved: e.IsRemoved}
	}
	*m = ORMap[T]{entries: entries}
	return nil
}

type pnCounterWire struct {
	Incs map[string]uint64 `json:"incs"`
	Decs map[string]uint64 `json:"decs"`
}

func (c PNCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(pnCounterWire{c.incs, c.decs})
}

func (c *PNCounter) UnmarshalJSON(data []byte) error {
	var w pnCounterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Incs == nil {
		w.Incs = make(map[string]uint64)
	}
	if w.Decs == nil {
		w.Decs = make(map[string]uint64)
	}
	*c = PNCounter{incs: w.Incs, decs: w.Decs}
	return nil
}

type tsEntryWire[T any] struct {
	Value   T      `json:"value"`
	Ts      int64  `json:"ts"`
	Replica string `json:"replica"`
}

type tsTombstoneWire struct {
	Ts      int64  `json:"ts"`
	Replica string `json:"replica"`
}

type tombstoneSetWire[T any] struct {
	Entries    map[string]tsEntryWire[T]    `json:"entries"`
	Tombstones map[string]tsTombstoneWire   `json:"tombstones"`
}

func (s TombstoneSet[T]) MarshalJSON() ([]byte, error) {
	w := tombstoneSetWire[T]{
		Entries:    make(map[string]tsEntryWire[T], len(s.entries)),
		Tombstones: make(map[string]tsTombstoneWire, len(s.tombstones)),
	}
	for k, e := range s.entries {
		w.Entries[k] = tsEntryWire[T]{e.value, e.ts, e.replica}
	}
	for k, t := range s.tombstones {
		w.Tombstones[k] = tsTombstoneWire{t.ts, t.replica}
	}
	return json.Marshal(w)
}

func (s *TombstoneSet[T]) UnmarshalJSON(data []byte) error {
	var w tombstoneSetWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	entries := make(map[string]tsEntry[T], len(w.Entries))
	for k, e := range w.Entries {
		entries[k] = tsEntry[T]{value: e.Value, ts: e.Ts, replica: e.Replica}
	}
	tombstones := make(map[string]tsTombstone, len(w.Tombstones))
	for k, t := range w.Tombstones {
		tombstones[k] = tsTombstone{ts: t.Ts, replica: t.Replica}
	}
	*s = TombstoneSet[T]{entries: entries, tombstones: tombstones}
	return nil
}

type orderedSetWire[T any] struct {
	Entries    map[string]tsEntryWire[T] `json:"entries"`
	Tombstones []string                   `json:"tombstones"`
}

func (s OrderedSet[T]) MarshalJSON() ([]byte, error) {
	w := orderedSetWire[T]{Entries: make(map[string]tsEntryWire[T], len(s.entries))}
	for k, e := range s.entries {
		w.Entries[k] = tsEntryWire[T]{e.value, e.ts, e.replica}
	}
	for k := range s.tombstones {
		w.Tombstones = append(w.Tombstones, k)
	}
	return json.Marshal(w)
}

func (s *OrderedSet[T]) UnmarshalJSON(data []byte) error {
	var w orderedSetWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	entries := make(map[string]tsEntry[T], len(w.Entries))
	for k, e := range w.Entries {
		entries[k] = tsEntry[T]{value: e.Value, ts: e.Ts, replica: e.Replica}
	}
	tombstones := make(map[string]struct{}, len(w.Tombstones))
	for _, k := range w.Tombstones {
		tombstones[k] = struct{}{}
	}
	*s = OrderedSet[T]{entries: entries, tombstones: tombstones}
	return nil
}

type rgaEntryWire[T any] struct {
	ID      RGAID    `json:"id"`
	Value   T        `json:"value"`
	Ts      int64    `json:"ts"`
	Replica string   `json:"replica"`
	Pos     Position `json:"pos"`
	Deleted bool     `json:"deleted"`
}

type rgaWire[T any] struct {
	Replica string          `json:"replica"`
	Seq     uint64          `json:"seq"`
	Entries []rgaEntryWire[T] `json:"entries"`
}

func (r RGA[T]) MarshalJSON() ([]byte, error) {
	w := rgaWire[T]{Replica: r.replica, Seq: r.seq, Entries: make([]rgaEntryWire[T], 0, len(r.entries))}
	for _, e := range r.entries {
		w.Entries = append(w.Entries, rgaEntryWire[T]{e.id, e.value, e.ts, e.replica, e.pos, e.deleted})
	}
	return json.Marshal(w)
}

func (r *RGA[T]) UnmarshalJSON(data []byte) error {
	var w rgaWire[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	entries := make(map[RGAID]rgaEntry[T], len(w.Entries))
	for _, e := range w.Entries {
		entries[e.ID] = rgaEntry[T]{id: e.ID, value: e.Value, ts: e.Ts, replica: e.Replica, pos: e.Pos, deleted: e.Deleted}
	}
	*r = RGA[T]{replica: w.Replica, seq: w.Seq, entries: entries}
	return nil
}
