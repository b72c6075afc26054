// Package collab is the reference collaborative text editor built on
// top of the rest of this module: one crdt.RGA[string] (grapheme
// sequence) per document, replicated to every connected client over a
// gorilla/websocket upgrade. Edits are pushed to each other session
// directly from the editing goroutine, so a slow reader delays the
// writer; each Document holds a hub.Hub feed, but nothing publishes
// to or subscribes from it.
package collab

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Polqt/syncdb/collection"
	"github.com/Polqt/syncdb/hub"
	"github.com/Polqt/syncdb/replicate"
	"github.com/Polqt/syncdb/storage"
	"github.com/Polqt/syncdb/transport"
)

// Message types exchanged between a client and the collab server.
const (
	MsgInsert   = "insert"
	MsgDelete   = "delete"
	MsgSnapshot = "snapshot"
	MsgError    = "error"
)

// Message is the collab-layer wire envelope, distinct from
// syncproto.SyncOperation: this is the app-facing protocol a thin
// editor client speaks, translated internally into collection.Sequence
// calls (and so into SyncOperations) rather than handled raw.
type Message struct {
	DocID    string          `json:"docId"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	SenderID string          `json:"senderId"`
	Ts       time.Time       `json:"ts"`
}

// InsertPayload requests a character insertion at a visible index.
type InsertPayload struct {
	Index int    `json:"index"`
	Char  string `json:"char"`
}

// DeletePayload requests removal of the character at a visible index.
type DeletePayload struct {
	Index int `json:"index"`
}

// SnapshotPayload is sent to a newly joined session.
type SnapshotPayload struct {
	Text string `json:"text"`
}

// Sender is implemented by the transport adapter (e.g. a
// gorilla/websocket connection) so Document/Hub never depend on the
// concrete transport.
type Sender interface {
	Send(msg Message) error
	Close() error
	RemoteAddr() string
}

// Session is one connected editor client.
type Session struct {
	ID     string
	DocID  string
	sender Sender
}

// NewSession returns a Session bound to sender.
func NewSession(id, docID string, sender Sender) *Session {
	return &Session{ID: id, DocID: docID, sender: sender}
}

// Push delivers msg to this session's client.
func (s *Session) Push(msg Message) error { return s.sender.Send(msg) }

// Document is one collaboratively edited text, backed by a
// collection.Sequence[string] (and therefore by the full
// replication/storage/transport stack, not a bespoke in-memory CRDT).
type Document struct {
	ID  string
	seq *collection.Sequence[string]

	mu       sync.RWMutex
	sessions map[string]*Session
	feed     *hub.Hub[Message]
}

// NewDocument builds a document named id, storing its text at storage
// key "doc/"+id through store, replicated via engine/loop.
func NewDocument(id, replica string, store storage.Store, engine transport.Engine, loop *replicate.Loop, log *zap.Logger) *Document {
	return &Document{
		ID:       id,
		seq:      collection.NewSequence[string]("doc/"+id, replica, store, engine, loop, log),
		sessions: make(map[string]*Session),
		feed:     hub.New[Message](hub.Dropping, 256),
	}
}

// Text returns the document's current contents.
func (d *Document) Text(ctx context.Context) string {
	runes := d.seq.ToArray(ctx)
	out := make([]byte, 0, len(runes))
	for _, r := range runes {
		out = append(out, r...)
	}
	return string(out)
}

// InsertAt inserts ch at visible index idx and fans the edit out to
// every other session.
func (d *Document) InsertAt(ctx context.Context, idx int, ch string, fromSession string) error {
	if err := d.seq.InsertAt(ctx, idx, ch); err != nil {
		return err
	}
	payload, _ := json.Marshal(InsertPayload{Index: idx, Char: ch})
	d.broadcast(Message{DocID: d.ID, Type: MsgInsert, Payload: payload, SenderID: fromSession, Ts: time.Now()}, fromSession)
	return nil
}

// RemoveAt removes the character at visible index idx and fans the
// edit out to every other session.
func (d *Document) RemoveAt(ctx context.Context, idx int, fromSession string) error {
	if err := d.seq.RemoveAt(ctx, idx); err != nil {
		return err
	}
	payload, _ := json.Marshal(DeletePayload{Index: idx})
	d.broadcast(Message{DocID: d.ID, Type: MsgDelete, Payload: payload, SenderID: fromSession, Ts: time.Now()}, fromSession)
	return nil
}

func (d *Document) broadcast(msg Message, excludeID string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for id, s := range d.sessions {
		if id == excludeID {
			continue
		}
		_ = s.Push(msg)
	}
}

func (d *Document) join(s *Session) {
	d.mu.Lock()
	d.sessions[s.ID] = s
	d.mu.Unlock()
}

func (d *Document) leave(id string) {
	d.mu.Lock()
	delete(d.sessions, id)
	d.mu.Unlock()
}
