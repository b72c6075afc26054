// Package syncproto defines the wire-level vocabulary shared by the
// transport, replication and collection layers: the SyncOperation
// envelope, the reconciliation request/response pair, and the
// conflict/partial-sync auxiliary types from the external interface
// (spec §6).
package syncproto

import "github.com/Polqt/syncdb/crdt"

// OpKind is the kind of mutation a SyncOperation carries.
type OpKind string

const (
	OpSet       OpKind = "set"
	OpDelete    OpKind = "delete"
	OpReconcile OpKind = "reconcile"
)

// SyncOperation is the envelope carried by the transport for every
// locally originated mutation and every operation exchanged during
// replication.
type SyncOperation struct {
	ID            string       `json:"id"`
	Kind          OpKind       `json:"kind"`
	Key           string       `json:"key"`
	Value         any          `json:"value,omitempty"`
	Timestamp     int64        `json:"timestamp"`
	Replica       string       `json:"replica"`
	Clock         crdt.VClock  `json:"clock"`
	ServerClock   *crdt.VClock `json:"server_clock,omitempty"`
	OpVector      *crdt.VClock `json:"op_vector,omitempty"`
	Collection    string       `json:"collection,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	Scope         string       `json:"scope,omitempty"`
}

// Resolution is how the server chose to resolve one conflicting key
// during reconciliation.
type Resolution string

const (
	ResolveClient Resolution = "client"
	ResolveServer Resolution = "server"
	ResolveMerge  Resolution = "merge"
)

// ConflictResolution is one entry of a ReconciliationResponse's
// conflict report.
type ConflictResolution struct {
	Key         string     `json:"key"`
	ClientValue any        `json:"clientValue"`
	ServerValue any        `json:"serverValue"`
	Resolution  Resolution `json:"resolution"`
}

// ReconciliationRequest is what a replica sends to ask a server to
// reconcile its queued operations and current clock against
// authoritative state.
type ReconciliationRequest struct {
	ID         string          `json:"id"`
	Operations []SyncOperation `json:"operations"`
	ClientState crdt.VClock    `json:"clientState"`
	ReplicaID  string          `json:"replicaId"`
	Timestamp  int64           `json:"timestamp"`
}

// ReconciliationStatus is the server's verdict on a reconciliation
// request.
type ReconciliationStatus string

const (
	StatusAccepted ReconciliationStatus = "accepted"
	StatusConflict ReconciliationStatus = "conflict"
	StatusRejected ReconciliationStatus = "rejected"
)

// ReconciliationResponse is the server's reply to a
// ReconciliationRequest.
type ReconciliationResponse struct {
	ID               string                `json:"id"`
	Status           ReconciliationStatus  `json:"status"`
	ServerOperations []SyncOperation       `json:"serverOperations,omitempty"`
	ResolvedState    *crdt.VClock          `json:"resolvedState,omitempty"`
	Conflicts        []ConflictResolution  `json:"conflicts,omitempty"`
}

// PartialSyncConfig scopes a pull/reconcile request to a subset of the
// replicated data.
type PartialSyncConfig struct {
	Collections []string `json:"collections,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Scope       string   `json:"scope,omitempty"`
	Since       int64    `json:"since,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// DataConflict is reported to observers on the conflicts stream
// whenever a remote write and the local value disagree.
type DataConflict struct {
	Key         string `json:"key"`
	LocalValue  any    `json:"localValue"`
	RemoteValue any    `json:"remoteValue"`
	Timestamp   int64  `json:"timestamp"`
}
