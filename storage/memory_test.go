package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	require.Error(t, err)

	require.NoError(t, m.Set(ctx, "k", 42))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 42, v)

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	require.Error(t, err)
}

func TestMemoryKeysAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "a", 1))
	require.NoError(t, m.Set(ctx, "b", 2))

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, keys)

	require.NoError(t, m.Clear(ctx))
	keys, err = m.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestBoundedMemoryEvictsLRU(t *testing.T) {
	ctx := context.Background()
	m, err := NewBoundedMemory(2)
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "a", 1))
	require.NoError(t, m.Set(ctx, "b", 2))
	require.NoError(t, m.Set(ctx, "c", 3)) // evicts "a"

	_, err = m.Get(ctx, "a")
	require.Error(t, err)
	_, err = m.Get(ctx, "b")
	require.NoError(t, err)
	_, err = m.Get(ctx, "c")
	require.NoError(t, err)
}

func TestMemoryWatchReceivesUpdates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m := NewMemory()

	ch, err := m.Watch(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "k", "v1"))
	select {
	case v := <-ch:
		require.Equal(t, "v1", v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for watch notification")
	}
}
