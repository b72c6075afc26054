package crdt

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

// These tests check the join-semilattice laws (commutative,
// associative, idempotent) that every CRDT's Merge must satisfy for
// eventual consistency to hold regardless of delivery order. The
// fixed-literal cases below cover specific named scenarios (tie
// breaks, resurrection rules); the Randomized variants further down
// check the same laws hold over arbitrary quick-generated inputs, not
// just the hand-picked examples.

func TestGSetMergeLaws(t *testing.T) {
	a := NewGSet[string]().Add("x").Add("y")
	b := NewGSet[string]().Add("y").Add("z")
	c := NewGSet[string]().Add("w")

	require.ElementsMatch(t, a.Merge(b).Values(), b.Merge(a).Values())
	require.ElementsMatch(t, a.Merge(a).Values(), a.Values())
	require.ElementsMatch(t, a.Merge(b).Merge(c).Values(), a.Merge(b.Merge(c)).Values())
}

func TestTwoPSetBlocksResurrection(t *testing.T) {
	a := NewTwoPSet[string]().Add("x").Remove("x")
	b := a.Add("x") // resurrection attempt
	require.False(t, b.Has("x"))

	merged := a.Merge(NewTwoPSet[string]().Add("x"))
	require.False(t, merged.Has("x"), "a remove anywhere permanently wins")
}

func TestTwoPSetMergeLaws(t *testing.T) {
	a := NewTwoPSet[string]().Add("x").Add("y").Remove("y")
	b := NewTwoPSet[string]().Add("y").Add("z")

	require.ElementsMatch(t, a.Merge(b).Values(), b.Merge(a).Values())
	require.ElementsMatch(t, a.Merge(a).Values(), a.Values())
}

func TestPNCounterMergeLaws(t *testing.T) {
	a := NewPNCounter().Increment("r1", 3).Decrement("r1", 1)
	b := NewPNCounter().Increment("r1", 2).Increment("r2", 5)

	require.Equal(t, a.Merge(b).Value(), b.Merge(a).Value())
	require.Equal(t, a.Value(), a.Merge(a).Value())
	// a has incremented r1 by 3 (max over 3 vs 2), decremented by 1;
	// b has incremented r2 by 5.
	require.Equal(t, int64(3-1+5), a.Merge(b).Value())
}

func TestORMapLatestActivityWins(t *testing.T) {
	a := NewORMap[string]().Put("k", "v1", 10)
	b := NewORMap[string]().Put("k", "v2", 20)

	merged := a.Merge(b)
	v, ok := merged.Get("k")
	require.True(t, ok)
	require.Equal(t, "v2", v)

	// Commutative regardless of which side calls Merge.
	merged2 := b.Merge(a)
	v2, ok := merged2.Get("k")
	require.True(t, ok)
	require.Equal(t, v, v2)
}

func TestORMapRemoveWinsIfLaterThanPut(t *testing.T) {
	a := NewORMap[string]().Put("k", "v1", 10)
	b := a.Remove("k", 20)
	merged := a.Merge(b)
	_, ok := merged.Get("k")
	require.False(t, ok)
}

func TestOrderedSetPermanentTombstone(t *testing.T) {
	a := NewOrderedSet[string]().Add("id1", "v1", 1, "r1").Remove("id1")
	b := a.Add("id1", "v2", 100, "r1") // later timestamp, still refused
	require.False(t, b.Has("id1"))
}

func TestTombstoneSetAllowsResurrection(t *testing.T) {
	s := NewTombstoneSet[string]().Add("id1", "v1", 1, "r1").Remove("id1", 2, "r1")
	require.False(t, s.Has("id1"))

	resurrected := s.Add("id1", "v2", 3, "r1")
	require.True(t, resurrected.Has("id1"))
	v, _ := resurrected.Get("id1")
	require.Equal(t, "v2", v)
}

func TestTombstoneSetMergeLaws(t *testing.T) {
	a := NewTombstoneSet[string]().Add("id1", "v1", 1, "r1")
	b := NewTombstoneSet[string]().Add("id1", "v1", 1, "r1").Remove("id1", 2, "r2")

	merged1 := a.Merge(b)
	merged2 := b.Merge(a)
	require.Equal(t, merged1.Has("id1"), merged2.Has("id1"))
	require.False(t, merged1.Has("id1"))
}

func TestRGAOrderingAndMergeConvergence(t *testing.T) {
	r1 := NewRGA[string]("r1")
	r1, _ = r1.Append("a", 1)
	r1, _ = r1.Append("b", 2)

	r2 := NewRGA[string]("r2")
	r2, _ = r2.Append("c", 1)

	merged1 := r1.Merge(r2)
	merged2 := r2.Merge(r1)
	require.ElementsMatch(t, merged1.ToArray(), merged2.ToArray())
	require.Len(t, merged1.ToArray(), 3)
}

func TestRGAInsertAtAndRemoveAt(t *testing.T) {
	r := NewRGA[string]("r1")
	r, _ = r.Append("a", 1)
	r, _ = r.Append("c", 2)
	r, _, err := r.InsertAt(1, "b", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, r.ToArray())

	r, err = r.RemoveAt(1)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, r.ToArray())

	_, _, err = r.InsertAt(99, "z", 4)
	require.Error(t, err)
}

// ─────────────────────────────────────────────────────────────
// Randomized law checks (testing/quick)
// ─────────────────────────────────────────────────────────────

func stringMultisetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func gsetFrom(values []string) GSet[string] {
	s := NewGSet[string]()
	for _, v := range values {
		s = s.Add(v)
	}
	return s
}

func TestGSetMergeLawsRandomized(t *testing.T) {
	f := func(xs, ys, zs []string) bool {
		a, b, c := gsetFrom(xs), gsetFrom(ys), gsetFrom(zs)
		return stringMultisetEqual(a.Merge(b).Values(), b.Merge(a).Values()) &&
			stringMultisetEqual(a.Merge(a).Values(), a.Values()) &&
			stringMultisetEqual(a.Merge(b).Merge(c).Values(), a.Merge(b.Merge(c)).Values())
	}
	require.NoError(t, quick.Check(f, nil))
}

func twopsetFrom(adds, removes []string) TwoPSet[string] {
	s := NewTwoPSet[string]()
	for _, v := range adds {
		s = s.Add(v)
	}
	for _, v := range removes {
		s = s.Remove(v)
	}
	return s
}

func TestTwoPSetMergeLawsRandomized(t *testing.T) {
	f := func(a1, r1, a2, r2, a3, r3 []string) bool {
		a, b, c := twopsetFrom(a1, r1), twopsetFrom(a2, r2), twopsetFrom(a3, r3)
		return stringMultisetEqual(a.Merge(b).Values(), b.Merge(a).Values()) &&
			stringMultisetEqual(a.Merge(a).Values(), a.Values()) &&
			stringMultisetEqual(a.Merge(b).Merge(c).Values(), a.Merge(b.Merge(c)).Values())
	}
	require.NoError(t, quick.Check(f, nil))
}

func pnFrom(incs, decs map[string]uint8) PNCounter {
	c := NewPNCounter()
	for replica, delta := range incs {
		c = c.Increment(replica, uint64(delta))
	}
	for replica, delta := range decs {
		c = c.Decrement(replica, uint64(delta))
	}
	return c
}

func TestPNCounterMergeLawsRandomized(t *testing.T) {
	f := func(i1, d1, i2, d2, i3, d3 map[string]uint8) bool {
		a, b, c := pnFrom(i1, d1), pnFrom(i2, d2), pnFrom(i3, d3)
		return a.Merge(b).Value() == b.Merge(a).Value() &&
			a.Merge(a).Value() == a.Value() &&
			a.Merge(b).Merge(c).Value() == a.Merge(b.Merge(c)).Value()
	}
	require.NoError(t, quick.Check(f, nil))
}

func ormapFrom(puts, removes map[string]int8) ORMap[string] {
	m := NewORMap[string]()
	for key, ts := range puts {
		m = m.Put(key, "v-"+key, int64(ts))
	}
	for key, ts := range removes {
		m = m.Remove(key, int64(ts))
	}
	return m
}

func ormapEqual(a, b ORMap[string]) bool {
	ka, kb := a.Keys(), b.Keys()
	if len(ka) != len(kb) {
		return false
	}
	seen := make(map[string]bool, len(ka))
	for _, k := range ka {
		seen[k] = true
	}
	for _, k := range kb {
		if !seen[k] {
			return false
		}
	}
	for _, k := range ka {
		va, _ := a.Get(k)
		vb, _ := b.Get(k)
		if va != vb {
			return false
		}
	}
	return true
}

func TestORMapMergeLawsRandomized(t *testing.T) {
	f := func(p1, r1, p2, r2, p3, r3 map[string]int8) bool {
		a, b, c := ormapFrom(p1, r1), ormapFrom(p2, r2), ormapFrom(p3, r3)
		return ormapEqual(a.Merge(b), b.Merge(a)) &&
			ormapEqual(a.Merge(a), a) &&
			ormapEqual(a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
	}
	require.NoError(t, quick.Check(f, nil))
}

func tombstoneSetFrom(adds, removes map[string]int8) TombstoneSet[string] {
	s := NewTombstoneSet[string]()
	for id, ts := range adds {
		s = s.Add(id, "v-"+id, int64(ts), "r-"+id)
	}
	for id, ts := range removes {
		s = s.Remove(id, int64(ts), "r-"+id)
	}
	return s
}

func TestTombstoneSetMergeLawsRandomized(t *testing.T) {
	f := func(a1, r1, a2, r2, a3, r3 map[string]int8) bool {
		a, b, c := tombstoneSetFrom(a1, r1), tombstoneSetFrom(a2, r2), tombstoneSetFrom(a3, r3)
		return stringMultisetEqual(a.Merge(b).Values(), b.Merge(a).Values()) &&
			stringMultisetEqual(a.Merge(a).Values(), a.Values()) &&
			stringMultisetEqual(a.Merge(b).Merge(c).Values(), a.Merge(b.Merge(c)).Values())
	}
	require.NoError(t, quick.Check(f, nil))
}

func orderedSetFrom(adds, removes map[string]int8) OrderedSet[string] {
	s := NewOrderedSet[string]()
	for id, ts := range adds {
		s = s.Add(id, "v-"+id, int64(ts), "r-"+id)
	}
	for id := range removes {
		s = s.Remove(id)
	}
	return s
}

func TestOrderedSetMergeLawsRandomized(t *testing.T) {
	f := func(a1, r1, a2, r2, a3, r3 map[string]int8) bool {
		a, b, c := orderedSetFrom(a1, r1), orderedSetFrom(a2, r2), orderedSetFrom(a3, r3)
		return stringMultisetEqual(a.Merge(b).Values(), b.Merge(a).Values()) &&
			stringMultisetEqual(a.Merge(a).Values(), a.Values()) &&
			stringMultisetEqual(a.Merge(b).Merge(c).Values(), a.Merge(b.Merge(c)).Values())
	}
	require.NoError(t, quick.Check(f, nil))
}

func rgaFrom(replica string, values []string) RGA[string] {
	r := NewRGA[string](replica)
	for i, v := range values {
		r, _ = r.Append(v, int64(i+1))
	}
	return r
}

// RGA's Position scheme makes ToArray's order a pure function of the
// merged entry set, so convergent merges must produce byte-identical
// arrays, not merely the same multiset.
func TestRGAMergeLawsRandomized(t *testing.T) {
	f := func(xs, ys, zs []string) bool {
		a, b, c := rgaFrom("ra", xs), rgaFrom("rb", ys), rgaFrom("rc", zs)
		return stringSliceEqual(a.Merge(b).ToArray(), b.Merge(a).ToArray()) &&
			stringSliceEqual(a.Merge(a).ToArray(), a.ToArray()) &&
			stringSliceEqual(a.Merge(b).Merge(c).ToArray(), a.Merge(b.Merge(c)).ToArray())
	}
	require.NoError(t, quick.Check(f, nil))
}
