package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Polqt/syncdb/internal/metrics"
	"github.com/Polqt/syncdb/syncproto"
)

const (
	pushPullTimeout  = 10 * time.Second
	reconcileTimeout = 15 * time.Second
	maxReconnects    = 5
)

// WSEngine is the production Engine, a client-side WebSocket
// connection to a sync server. It owns the connection state machine,
// request/response correlation table, reconnect backoff, and a circuit
// breaker and a rate limiter on push (pull and reconcile use neither).
type WSEngine struct {
	url       string
	replicaID string
	dialer    *websocket.Dialer
	log       *zap.Logger
	metrics   *metrics.Registry

	mu    sync.Mutex
	conn  *websocket.Conn
	st    state
	cancelReconnect context.CancelFunc

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan wireMessage

	statusCh   chan Status
	conflictCh chan syncproto.DataConflict
	opsCh      chan syncproto.SyncOperation

	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// WSOption configures a WSEngine at construction.
type WSOption func(*WSEngine)

// WithLogger overrides the engine's zap logger (default: zap.NewNop()).
func WithLogger(l *zap.Logger) WSOption { return func(e *WSEngine) { e.log = l } }

// WithPushRateLimit caps outbound push calls per second (default: 20/s, burst 20).
func WithPushRateLimit(rps float64, burst int) WSOption {
	return func(e *WSEngine) { e.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithMetrics attaches a metrics registry. Push/Pull/Reconcile
// latencies are observed on RPCLatency, keyed by rpc name; successful
// reconnects increment Reconnects.
func WithMetrics(m *metrics.Registry) WSOption { return func(e *WSEngine) { e.metrics = m } }

// NewWSEngine returns a WSEngine dialing url as replicaID. Connect
// must be called before any RPC.
func NewWSEngine(url, replicaID string, opts ...WSOption) *WSEngine {
	e := &WSEngine{
		url:        url,
		replicaID:  replicaID,
		dialer:     websocket.DefaultDialer,
		log:        zap.NewNop(),
		pending:    make(map[string]chan wireMessage),
		statusCh:   make(chan Status, 8),
		conflictCh: make(chan syncproto.DataConflict, 32),
		opsCh:      make(chan syncproto.SyncOperation, 256),
		limiter:    rate.NewLimiter(rate.Limit(20), 20),
	}
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "syncdb-transport-" + replicaID,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *WSEngine) setState(s state) {
	e.mu.Lock()
	e.st = s
	e.mu.Unlock()
	select {
	case e.statusCh <- s.status():
	default:
	}
}

func (e *WSEngine) getState() state {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st
}

// Connect dials the server and starts the read loop. On unexpected
// close it transitions through Reconnecting on its own; Connect only
// needs to be called again after a terminal Disconnected.
func (e *WSEngine) Connect(ctx context.Context) error {
	e.setState(stateConnecting)
	conn, _, err := e.dialer.DialContext(ctx, e.url, nil)
	if err != nil {
		e.setState(stateDisconnected)
		return syncErr(ErrConnection, "dial %s: %v", e.url, err)
	}
	e.mu.Lock()
	e.conn = conn
	e.mu.Unlock()
	e.setState(stateOnline)
	go e.readLoop(conn)
	return nil
}

// Disconnect closes the connection. It is infallible per the
// contract: close errors are logged, never returned.
func (e *WSEngine) Disconnect() error {
	e.mu.Lock()
	if e.cancelReconnect != nil {
		e.cancelReconnect()
	}
	conn := e.conn
	e.conn = nil
	e.mu.Unlock()
	if conn != nil {
		if err := conn.Close(); err != nil {
			e.log.Debug("close error", zap.Error(err))
		}
	}
	e.setState(stateDisconnected)
	return nil
}

func (e *WSEngine) readLoop(conn *websocket.Conn) {
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			e.handleDisconnect(conn, err)
			return
		}
		e.dispatch(msg)
	}
}

func (e *WSEngine) dispatch(msg wireMessage) {
	if msg.RequestID != "" {
		e.pendingMu.Lock()
		ch, ok := e.pending[msg.RequestID]
		if ok {
			delete(e.pending, msg.RequestID)
		}
		e.pendingMu.Unlock()
		if ok {
			ch <- msg
			return
		}
	}
	switch msg.Type {
	case msgOperations:
		for _, op := range msg.Operations {
			select {
			case e.opsCh <- op:
			default:
				e.log.Warn("operations stream full, dropping broadcast op", zap.String("key", op.Key))
			}
		}
	case msgConflict:
		if msg.Conflict != nil {
			select {
			case e.conflictCh <- *msg.Conflict:
			default:
			}
		}
	}
}

// handleDisconnect reacts to an unexpected read error by entering the
// Reconnecting state and retrying the dial on the stepBackoff
// schedule, giving up to Disconnected after maxReconnects attempts.
func (e *WSEngine) handleDisconnect(conn *websocket.Conn, err error) {
	e.mu.Lock()
	if e.conn != conn {
		e.mu.Unlock()
		return // already superseded by a newer connection
	}
	e.conn = nil
	ctx, cancel := context.WithCancel(context.Background())
	e.cancelReconnect = cancel
	e.mu.Unlock()

	e.log.Info("connection lost, reconnecting", zap.Error(err))
	e.setState(stateReconnecting)

	bo := newStepBackoff(maxReconnects)
	first := true
	retryErr := backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		// backoff.Retry runs the operation once before consulting the
		// schedule; skip that call so every dial waits 1000×attempt ms.
		if first {
			first = false
			return fmt.Errorf("waiting before first reconnect attempt")
		}
		e.setState(stateConnecting)
		conn, _, dialErr := e.dialer.DialContext(ctx, e.url, nil)
		if dialErr != nil {
			e.setState(stateReconnecting)
			return dialErr
		}
		e.mu.Lock()
		e.conn = conn
		e.mu.Unlock()
		e.setState(stateOnline)
		if e.metrics != nil {
			e.metrics.Reconnects.Inc()
		}
		go e.readLoop(conn)
		return nil
	}, bo)
	if retryErr != nil {
		e.log.Warn("giving up reconnecting", zap.Error(retryErr))
		e.setState(stateDisconnected)
	}
}

// request sends msg and blocks for its correlated reply, honoring the
// operation's built-in timeout (spec §4.4).
func (e *WSEngine) request(ctx context.Context, msg wireMessage, timeout time.Duration) (wireMessage, error) {
	if e.metrics != nil {
		start := time.Now()
		defer func() {
			e.metrics.RPCLatency.WithLabelValues(string(msg.Type)).Observe(time.Since(start).Seconds())
		}()
	}

	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return wireMessage{}, syncErr(ErrNotConnected, "no active connection")
	}

	reply := make(chan wireMessage, 1)
	e.pendingMu.Lock()
	e.pending[msg.RequestID] = reply
	e.pendingMu.Unlock()

	e.setState(stateSyncing)
	defer func() {
		if e.getState() == stateSyncing {
			e.setState(stateOnline)
		}
	}()

	e.writeMu.Lock()
	writeErr := conn.WriteJSON(msg)
	e.writeMu.Unlock()
	if writeErr != nil {
		e.pendingMu.Lock()
		delete(e.pending, msg.RequestID)
		e.pendingMu.Unlock()
		return wireMessage{}, syncErr(ErrSend, "write %s: %v", msg.Type, writeErr)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp := <-reply:
		return resp, nil
	case <-timer.C:
		e.pendingMu.Lock()
		delete(e.pending, msg.RequestID)
		e.pendingMu.Unlock()
		return wireMessage{}, syncErr(ErrTimeout, "%s timed out after %s", msg.Type, timeout)
	case <-ctx.Done():
		e.pendingMu.Lock()
		delete(e.pending, msg.RequestID)
		e.pendingMu.Unlock()
		return wireMessage{}, ctx.Err()
	}
}

// Push sends ops and waits for the server's ack, rate-limited and
// circuit-broken.
func (e *WSEngine) Push(ctx context.Context, ops []syncproto.SyncOperation) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return syncErr(ErrSend, "rate limiter: %v", err)
	}
	_, err := e.breaker.Execute(func() (any, error) {
		resp, reqErr := e.request(ctx, wireMessage{
			Type:       msgPush,
			RequestID:  uuid.NewString(),
			Operations: ops,
		}, pushPullTimeout)
		if reqErr != nil {
			return nil, reqErr
		}
		if resp.Type == msgError {
			return nil, syncErr(ErrSend, "%s", resp.Error)
		}
		return nil, nil
	})
	if err != nil {
		return asSyncError(ErrSend, err)
	}
	return nil
}

// Pull requests the next batch of operations, optionally scoped by cfg.
func (e *WSEngine) Pull(ctx context.Context, cfg *syncproto.PartialSyncConfig) ([]syncproto.SyncOperation, error) {
	resp, err := e.request(ctx, wireMessage{
		Type:        msgPull,
		RequestID:   uuid.NewString(),
		PartialSync: cfg,
	}, pushPullTimeout)
	if err != nil {
		return nil, asSyncError(ErrPull, err)
	}
	if resp.Type == msgError {
		return nil, syncErr(ErrPull, "%s", resp.Error)
	}
	return resp.Operations, nil
}

// Reconcile sends req and returns the server's reconciliation decision.
func (e *WSEngine) Reconcile(ctx context.Context, req syncproto.ReconciliationRequest) (syncproto.ReconciliationResponse, error) {
	req.ID = uuid.NewString()
	resp, err := e.request(ctx, wireMessage{
		Type:      msgReconcile,
		RequestID: req.ID,
		Reconcile: &req,
	}, reconcileTimeout)
	if err != nil {
		return syncproto.ReconciliationResponse{}, asSyncError(ErrReconcile, err)
	}
	if resp.Type == msgError {
		return syncproto.ReconciliationResponse{}, syncErr(ErrReconcile, "%s", resp.Error)
	}
	if resp.ReconcileResponse == nil {
		return syncproto.ReconciliationResponse{}, syncErr(ErrReconcile, "server sent no reconcile-response body")
	}
	return *resp.ReconcileResponse, nil
}

func (e *WSEngine) Conflicts() <-chan syncproto.DataConflict { return e.conflictCh }

func (e *WSEngine) StatusStream() <-chan Status { return e.statusCh }

func (e *WSEngine) Operations() <-chan syncproto.SyncOperation { return e.opsCh }

// asSyncError wraps a non-SyncError (e.g. a gobreaker "circuit open")
// in fallback, preserving any *SyncError already carrying a precise code.
func asSyncError(fallback ErrorCode, err error) *SyncError {
	if se, ok := err.(*SyncError); ok {
		return se
	}
	return syncErr(fallback, "%v", err)
}

var _ Engine = (*WSEngine)(nil)
