package collab

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Polqt/syncdb/replicate"
	"github.com/Polqt/syncdb/storage"
	"github.com/Polqt/syncdb/transport"
)

// Hub is the registry of live documents for one syncdbd process.
type Hub struct {
	mu       sync.RWMutex
	docs     map[string]*Document
	replica  string
	store    storage.Store
	engine   transport.Engine
	loop     *replicate.Loop
	log      *zap.Logger
}

// NewHub returns an empty registry. Every document it creates shares
// the given storage backend, transport engine, replication loop and
// logger.
func NewHub(replica string, store storage.Store, engine transport.Engine, loop *replicate.Loop, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		docs:    make(map[string]*Document),
		replica: replica,
		store:   store,
		engine:  engine,
		loop:    loop,
		log:     log,
	}
}

// GetOrCreate returns the document named id, creating it on first use.
func (h *Hub) GetOrCreate(id string) *Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d, ok := h.docs[id]; ok {
		return d
	}
	d := NewDocument(id, h.replica, h.store, h.engine, h.loop, h.log)
	h.docs[id] = d
	return d
}

// Join registers sess with its document and sends it a snapshot.
func (h *Hub) Join(ctx context.Context, sess *Session) {
	doc := h.GetOrCreate(sess.DocID)
	doc.join(sess)
	payload, err := json.Marshal(SnapshotPayload{Text: doc.Text(ctx)})
	if err != nil {
		h.log.Warn("marshal snapshot", zap.Error(err))
		return
	}
	_ = sess.Push(Message{
		DocID:   sess.DocID,
		Type:    MsgSnapshot,
		Payload: payload,
		Ts:      time.Now(),
	})
}

// Leave removes sess from its document.
func (h *Hub) Leave(sess *Session) {
	doc := h.GetOrCreate(sess.DocID)
	doc.leave(sess.ID)
}

// DocumentCount returns how many documents currently have at least one
// in-memory entry in the registry (admin/inspection use).
func (h *Hub) DocumentCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.docs)
}
