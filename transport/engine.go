// Package transport implements the sync engine contract: connection
// lifecycle, push/pull/reconcile RPCs, request/response correlation,
// and the conflict/status streams. WSEngine is the production
// implementation over github.com/gorilla/websocket; ManualEngine is
// the degenerate no-op mode for embedders that drive replication
// entirely through explicit local writes.
package transport

import (
	"context"
	"fmt"

	"github.com/Polqt/syncdb/syncproto"
)

// ErrorCode enumerates the failure modes an Engine call can report.
type ErrorCode string

const (
	ErrConnection   ErrorCode = "CONNECTION_ERROR"
	ErrInit         ErrorCode = "INIT_ERROR"
	ErrNotConnected ErrorCode = "NOT_CONNECTED"
	ErrTimeout      ErrorCode = "TIMEOUT"
	ErrSend         ErrorCode = "SEND_ERROR"
	ErrPull         ErrorCode = "PULL_ERROR"
	ErrReconcile    ErrorCode = "RECONCILE_ERROR"
	ErrPartialSync  ErrorCode = "PARTIAL_SYNC_ERROR"
)

// SyncError reports a transport-layer failure.
type SyncError struct {
	Code ErrorCode
	Msg  string
}

func (e *SyncError) Error() string { return fmt.Sprintf("transport: %s: %s", e.Code, e.Msg) }

func syncErr(code ErrorCode, format string, args ...any) *SyncError {
	return &SyncError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Status is a connection-state notification delivered on the status
// stream.
type Status string

const (
	StatusOnline       Status = "online"
	StatusOffline      Status = "offline"
	StatusSyncing      Status = "syncing"
	StatusConnecting   Status = "connecting"
	StatusReconnecting Status = "reconnecting"
)

// state is the engine's internal connection state machine. It
// projects onto the Status stream one-to-one, except that
// Disconnected is reported as StatusOffline; Connecting and
// Reconnecting are reported as their own Status values.
type state int

const (
	stateDisconnected state = iota
	stateConnecting
	stateOnline
	stateSyncing
	stateReconnecting
)

func (s state) status() Status {
	switch s {
	case stateOnline:
		return StatusOnline
	case stateSyncing:
		return StatusSyncing
	case stateConnecting:
		return StatusConnecting
	case stateReconnecting:
		return StatusReconnecting
	default:
		return StatusOffline
	}
}

// Engine is the sync engine contract every transport implementation
// satisfies (spec §4.4).
type Engine interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Push(ctx context.Context, ops []syncproto.SyncOperation) error
	Pull(ctx context.Context, cfg *syncproto.PartialSyncConfig) ([]syncproto.SyncOperation, error)
	Reconcile(ctx context.Context, req syncproto.ReconciliationRequest) (syncproto.ReconciliationResponse, error)
	Conflicts() <-chan syncproto.DataConflict
	StatusStream() <-chan Status
	// Operations is the incoming-operations stream consumed by the
	// replication loop for unsolicited server-initiated broadcasts.
	Operations() <-chan syncproto.SyncOperation
}
