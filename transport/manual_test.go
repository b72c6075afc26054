package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Polqt/syncdb/crdt"
	"github.com/Polqt/syncdb/syncproto"
)

func TestManualEngineIsAllNoOps(t *testing.T) {
	e := NewManualEngine()
	ctx := context.Background()

	require.NoError(t, e.Connect(ctx))
	require.NoError(t, e.Push(ctx, []syncproto.SyncOperation{{Key: "a"}}))

	ops, err := e.Pull(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, ops)

	clock := crdt.NewVClock().Increment("replica-a")
	resp, err := e.Reconcile(ctx, syncproto.ReconciliationRequest{ClientState: clock})
	require.NoError(t, err)
	require.Equal(t, syncproto.StatusAccepted, resp.Status)
	require.True(t, resp.ResolvedState.Equal(clock))

	status := <-e.StatusStream()
	require.Equal(t, StatusOffline, status)

	require.NoError(t, e.Disconnect())
}
