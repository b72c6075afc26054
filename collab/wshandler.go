package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsSender adapts a gorilla/websocket connection to the Sender
// interface Document/Hub depend on.
type wsSender struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSender) Send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *wsSender) Close() error       { return s.conn.Close() }
func (s *wsSender) RemoteAddr() string { return s.conn.RemoteAddr().String() }

// WSHandler upgrades HTTP requests to WebSocket connections and wires
// each one into a Hub as a collaborative editing session.
type WSHandler struct {
	hub *Hub
	log *zap.Logger
}

// NewWSHandler returns a handler backed by hub.
func NewWSHandler(hub *Hub, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{hub: hub, log: log}
}

// ServeHTTP upgrades the request and runs the session's read loop
// until the connection closes. docID is taken from the URL path
// suffix after "/ws/".
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	docID := strings.TrimPrefix(r.URL.Path, "/ws/")
	if docID == "" {
		docID = "default"
	}

	sess := NewSession(uuid.NewString(), docID, &wsSender{conn: conn})
	ctx := r.Context()
	h.hub.Join(ctx, sess)
	defer h.hub.Leave(sess)
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.log.Warn("bad message json", zap.Error(err))
			continue
		}
		h.dispatch(ctx, sess, msg)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, sess *Session, msg Message) {
	doc := h.hub.GetOrCreate(sess.DocID)

	switch msg.Type {
	case MsgInsert:
		var p InsertPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.log.Warn("bad insert payload", zap.Error(err))
			return
		}
		if err := doc.InsertAt(ctx, p.Index, p.Char, sess.ID); err != nil {
			_ = sess.Push(errorMessage(sess.DocID, err))
		}

	case MsgDelete:
		var p DeletePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.log.Warn("bad delete payload", zap.Error(err))
			return
		}
		if err := doc.RemoveAt(ctx, p.Index, sess.ID); err != nil {
			_ = sess.Push(errorMessage(sess.DocID, err))
		}

	default:
		h.log.Warn("unknown message type", zap.String("type", msg.Type))
	}
}

func errorMessage(docID string, err error) Message {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return Message{DocID: docID, Type: MsgError, Payload: payload, Ts: time.Now()}
}
