package replicate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Polqt/syncdb/crdt"
	"github.com/Polqt/syncdb/storage"
	"github.com/Polqt/syncdb/syncproto"
	"github.com/Polqt/syncdb/transport"
)

func TestApplyOperationsSkipsLoopback(t *testing.T) {
	store := storage.NewMemory()
	loop := New("replica-a", transport.NewManualEngine(), store, crdt.NewVClock(), 0)

	err := loop.ApplyOperations(context.Background(), []syncproto.SyncOperation{
		{Replica: "replica-a", Kind: syncproto.OpSet, Key: "k", Value: "should not apply", Clock: crdt.NewVClock().Increment("replica-a")},
	})
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "k")
	require.Error(t, err)
}

func TestApplyOperationsSkipsDominatedClock(t *testing.T) {
	store := storage.NewMemory()
	local := crdt.NewVClock().Increment("replica-a").Increment("replica-a")
	loop := New("replica-a", transport.NewManualEngine(), store, local, 0)

	stale := crdt.NewVClock().Increment("replica-a") // strictly behind local
	err := loop.ApplyOperations(context.Background(), []syncproto.SyncOperation{
		{Replica: "replica-b", Kind: syncproto.OpSet, Key: "k", Value: "stale", Clock: stale},
	})
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "k")
	require.Error(t, err)
}

func TestApplyOperationsSetAndDelete(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	loop := New("replica-a", transport.NewManualEngine(), store, crdt.NewVClock(), 0)

	remoteClock := crdt.NewVClock().Increment("replica-b")
	err := loop.ApplyOperations(ctx, []syncproto.SyncOperation{
		{Replica: "replica-b", Kind: syncproto.OpSet, Key: "k", Value: "v1", Clock: remoteClock},
	})
	require.NoError(t, err)

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v1", v)
	require.True(t, loop.Clock().Equal(remoteClock))

	remoteClock2 := remoteClock.Increment("replica-b")
	err = loop.ApplyOperations(ctx, []syncproto.SyncOperation{
		{Replica: "replica-b", Kind: syncproto.OpDelete, Key: "k", Clock: remoteClock2},
	})
	require.NoError(t, err)

	_, err = store.Get(ctx, "k")
	require.Error(t, err)
}

// TestClockOverwriteIsDefault documents the spec-flagged behavior: by
// default, applying a remote op whose clock doesn't mention a third
// replica's progress *loses* that progress, because the clock is
// overwritten rather than merged.
func TestClockOverwriteIsDefault(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	startingClock := crdt.NewVClock().Increment("replica-c")
	loop := New("replica-a", transport.NewManualEngine(), store, startingClock, 0)

	remoteClock := crdt.NewVClock().Increment("replica-b")
	err := loop.ApplyOperations(ctx, []syncproto.SyncOperation{
		{Replica: "replica-b", Kind: syncproto.OpSet, Key: "k", Value: "v", Clock: remoteClock},
	})
	require.NoError(t, err)

	require.Zero(t, loop.Clock().Get("replica-c"), "overwrite default forgets replica-c's progress")
}

func TestPreferMergeKeepsComponentwiseMax(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	startingClock := crdt.NewVClock().Increment("replica-c")
	loop := New("replica-a", transport.NewManualEngine(), store, startingClock, 0, WithPreferMerge())

	remoteClock := crdt.NewVClock().Increment("replica-b")
	err := loop.ApplyOperations(ctx, []syncproto.SyncOperation{
		{Replica: "replica-b", Kind: syncproto.OpSet, Key: "k", Value: "v", Clock: remoteClock},
	})
	require.NoError(t, err)

	require.Equal(t, uint64(1), loop.Clock().Get("replica-c"))
	require.Equal(t, uint64(1), loop.Clock().Get("replica-b"))
}

func TestIntegrateReconcileMergeFallsBackToServerWithoutResolver(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, "k", "client-value"))
	loop := New("replica-a", transport.NewManualEngine(), store, crdt.NewVClock(), 0)

	resp := syncproto.ReconciliationResponse{
		Status: syncproto.StatusAccepted,
		Conflicts: []syncproto.ConflictResolution{
			{Key: "k", ClientValue: "client-value", ServerValue: "server-value", Resolution: syncproto.ResolveMerge},
		},
	}
	require.NoError(t, loop.IntegrateReconcile(ctx, resp))

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "server-value", v)
}

func TestIntegrateReconcileMergeUsesResolver(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, "k", "client-value"))
	loop := New("replica-a", transport.NewManualEngine(), store, crdt.NewVClock(), 0, WithResolver(
		func(key string, local, remote any) (any, error) {
			return local.(string) + "+" + remote.(string), nil
		},
	))

	resp := syncproto.ReconciliationResponse{
		Status: syncproto.StatusAccepted,
		Conflicts: []syncproto.ConflictResolution{
			{Key: "k", ClientValue: "client-value", ServerValue: "server-value", Resolution: syncproto.ResolveMerge},
		},
	}
	require.NoError(t, loop.IntegrateReconcile(ctx, resp))

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "client-value+server-value", v)
}
