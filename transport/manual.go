package transport

import (
	"context"

	"github.com/Polqt/syncdb/syncproto"
)

// ManualEngine is the degenerate engine: every call succeeds as a
// no-op, pull always yields an empty batch, reconcile echoes the
// request's clientState back as the resolved state, and the status
// stream emits a single Offline and is then silent. It exists for
// embedders that want the collection facades and CRDT algebra without
// any network, e.g. a single-process demo or a batch-import tool.
type ManualEngine struct {
	status chan Status
	closed chan struct{}
}

// NewManualEngine returns a ready-to-use ManualEngine.
func NewManualEngine() *ManualEngine {
	e := &ManualEngine{
		status: make(chan Status, 1),
		closed: make(chan struct{}),
	}
	e.status <- StatusOffline
	return e
}

func (e *ManualEngine) Connect(context.Context) error { return nil }

func (e *ManualEngine) Disconnect() error { return nil }

func (e *ManualEngine) Push(context.Context, []syncproto.SyncOperation) error { return nil }

func (e *ManualEngine) Pull(context.Context, *syncproto.PartialSyncConfig) ([]syncproto.SyncOperation, error) {
	return nil, nil
}

func (e *ManualEngine) Reconcile(_ context.Context, req syncproto.ReconciliationRequest) (syncproto.ReconciliationResponse, error) {
	resolved := req.ClientState.Clone()
	return syncproto.ReconciliationResponse{
		ID:            req.ID,
		Status:        syncproto.StatusAccepted,
		ResolvedState: &resolved,
	}, nil
}

func (e *ManualEngine) Conflicts() <-chan syncproto.DataConflict {
	ch := make(chan syncproto.DataConflict)
	close(ch)
	return ch
}

func (e *ManualEngine) StatusStream() <-chan Status { return e.status }

func (e *ManualEngine) Operations() <-chan syncproto.SyncOperation {
	ch := make(chan syncproto.SyncOperation)
	close(ch)
	return ch
}
