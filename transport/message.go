package transport

import "github.com/Polqt/syncdb/syncproto"

// msgType is the discriminator of the framed JSON envelope exchanged
// over the WebSocket connection (spec §4.4 wire protocol).
type msgType string

const (
	msgPush               msgType = "push"
	msgAck                msgType = "ack"
	msgPull                msgType = "pull"
	msgOperations          msgType = "operations"
	msgReconcile           msgType = "reconcile"
	msgReconcileResponse   msgType = "reconcile-response"
	msgPartialSync         msgType = "partial-sync"
	msgPartialSyncComplete msgType = "partial-sync-complete"
	msgConflict            msgType = "conflict"
	msgError               msgType = "error"
)

// wireMessage is the single envelope shape every message type is
// encoded into; only the fields relevant to Type are populated.
type wireMessage struct {
	Type              msgType                          `json:"type"`
	RequestID         string                            `json:"requestId,omitempty"`
	Operations        []syncproto.SyncOperation         `json:"operations,omitempty"`
	PartialSync       *syncproto.PartialSyncConfig      `json:"partialSync,omitempty"`
	Reconcile         *syncproto.ReconciliationRequest  `json:"reconcile,omitempty"`
	ReconcileResponse *syncproto.ReconciliationResponse `json:"reconcileResponse,omitempty"`
	Conflict          *syncproto.DataConflict           `json:"conflict,omitempty"`
	Error             string                            `json:"error,omitempty"`
}
