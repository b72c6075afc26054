package crdt

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

func TestVClockCompare(t *testing.T) {
	a := NewVClock().Increment("r1")
	b := a.Increment("r1")
	require.Equal(t, Less, a.Compare(b))
	require.Equal(t, Greater, b.Compare(a))

	c := NewVClock().Increment("r2")
	require.Equal(t, Concurrent, a.Compare(c))
	require.Equal(t, Concurrent, a.Compare(a)) // Equal folds into Concurrent
}

func TestVClockMergeIsJoin(t *testing.T) {
	a := NewVClock().Increment("r1").Increment("r2")
	b := NewVClock().Increment("r2").Increment("r2").Increment("r3")

	m := a.Merge(b)
	require.Equal(t, uint64(1), m.Get("r1"))
	require.Equal(t, uint64(2), m.Get("r2"))
	require.Equal(t, uint64(1), m.Get("r3"))

	// Commutative.
	require.True(t, m.Equal(b.Merge(a)))
	// Idempotent.
	require.True(t, m.Equal(m.Merge(m)))
	// Associative.
	c := NewVClock().Increment("r4")
	require.True(t, a.Merge(b).Merge(c).Equal(a.Merge(b.Merge(c))))
}

func vclockFrom(incs map[string]uint8) VClock {
	c := NewVClock()
	for replica, n := range incs {
		for i := uint8(0); i < n; i++ {
			c = c.Increment(replica)
		}
	}
	return c
}

func TestVClockMergeLawsRandomized(t *testing.T) {
	f := func(i1, i2, i3 map[string]uint8) bool {
		a, b, c := vclockFrom(i1), vclockFrom(i2), vclockFrom(i3)
		return a.Merge(b).Equal(b.Merge(a)) &&
			a.Merge(a).Equal(a) &&
			a.Merge(b).Merge(c).Equal(a.Merge(b.Merge(c)))
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestVClockCloneIsIndependent(t *testing.T) {
	a := NewVClock().Increment("r1")
	b := a.Clone()
	b2 := b.Increment("r1")
	require.Equal(t, uint64(1), a.Get("r1"))
	require.Equal(t, uint64(2), b2.Get("r1"))
}
