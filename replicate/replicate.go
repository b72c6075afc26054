// Package replicate drives the pull and reconcile background loops
// and applies remote operations to local storage, advancing the local
// vector clock as it goes (spec §4.5).
package replicate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Polqt/syncdb/crdt"
	"github.com/Polqt/syncdb/internal/metrics"
	"github.com/Polqt/syncdb/storage"
	"github.com/Polqt/syncdb/syncproto"
	"github.com/Polqt/syncdb/transport"
)

// Resolver lets an embedder supply real merge semantics for a
// conflict reported as resolution "merge". Left nil, Loop falls back
// to the library's historical behavior of treating "merge" the same
// as "server" (flagged as a defect below).
//
// Resolve receives the locally stored value and the value the server
// reports, and returns the value that should be written locally.
type Resolver func(key string, local, remote any) (any, error)

// Error reports a failure applying a remote operation to storage.
type Error struct {
	Op  string
	Key string
	Msg string
}

func (e *Error) Error() string { return "replicate: " + e.Op + " " + e.Key + ": " + e.Msg }

// Loop owns the pull and reconcile background tasks for one replica.
type Loop struct {
	replica  string
	engine   transport.Engine
	store    storage.Store
	interval time.Duration
	log      *zap.Logger
	metrics  *metrics.Registry

	// preferMerge, when true, replaces applyOperations step 4's
	// clock-overwrite with a componentwise VClock.Merge. The default
	// (false) reproduces the library's documented historical behavior:
	// the applied operation's clock unconditionally replaces the local
	// clock, which can *regress* causal knowledge of replicas not
	// mentioned in op.Clock. See applyOperations for the exact
	// semantics this flag switches between.
	preferMerge bool
	resolver    Resolver

	mu    sync.Mutex
	clock crdt.VClock

	pendingMu sync.Mutex
	pending   []syncproto.SyncOperation

	stop chan struct{}
	done sync.WaitGroup
}

// Option configures a Loop at construction.
type Option func(*Loop)

// WithPreferMerge switches applyOperations to componentwise-merge the
// local clock instead of overwriting it (see the §9-flagged default
// behavior documented on Loop.preferMerge).
func WithPreferMerge() Option { return func(l *Loop) { l.preferMerge = true } }

// WithResolver supplies real conflict-resolution semantics for
// "merge" reconciliation responses instead of falling back to the
// server's value.
func WithResolver(r Resolver) Option { return func(l *Loop) { l.resolver = r } }

// WithLogger overrides the loop's zap logger (default: nop).
func WithLogger(log *zap.Logger) Option { return func(l *Loop) { l.log = log } }

// WithMetrics attaches a metrics registry.
func WithMetrics(m *metrics.Registry) Option { return func(l *Loop) { l.metrics = m } }

// New constructs a Loop. interval is the pull period; the reconcile
// loop runs at 5×interval, per spec.
func New(replica string, engine transport.Engine, store storage.Store, clock crdt.VClock, interval time.Duration, opts ...Option) *Loop {
	l := &Loop{
		replica:  replica,
		engine:   engine,
		store:    store,
		interval: interval,
		clock:    clock.Clone(),
		log:      zap.NewNop(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Clock returns a snapshot of the loop's current local vector clock.
func (l *Loop) Clock() crdt.VClock {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clock.Clone()
}

// Enqueue records a locally originated operation so the next
// reconcile cycle reports it to the server.
func (l *Loop) Enqueue(op syncproto.SyncOperation) {
	l.pendingMu.Lock()
	l.pending = append(l.pending, op)
	l.pendingMu.Unlock()
}

// AdvanceLocal bumps the loop's tracked clock for a local mutation.
// Collection facades call this after every local write.
func (l *Loop) AdvanceLocal() crdt.VClock {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = l.clock.Increment(l.replica)
	return l.clock.Clone()
}

// Start launches the pull, reconcile and broadcast background tasks.
// It returns immediately; call Stop to shut them down. If interval <= 0
// the background loops are not started (manual/on-demand sync only).
func (l *Loop) Start(ctx context.Context) {
	if l.interval <= 0 {
		return
	}
	l.done.Add(3)
	go l.pullLoop(ctx)
	go l.reconcileLoop(ctx)
	go l.broadcastLoop(ctx)
}

// Stop halts the background loops and waits for them to exit.
func (l *Loop) Stop() {
	close(l.stop)
	l.done.Wait()
}

func (l *Loop) pullLoop(ctx context.Context) {
	defer l.done.Done()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			batch, err := l.engine.Pull(ctx, nil)
			if err != nil {
				l.log.Debug("pull failed", zap.Error(err))
				continue
			}
			if l.metrics != nil {
				l.metrics.PullBatchSize.Observe(float64(len(batch)))
			}
			if err := l.ApplyOperations(ctx, batch); err != nil {
				l.log.Warn("apply pulled operations", zap.Error(err))
			}
		}
	}
}

func (l *Loop) reconcileLoop(ctx context.Context) {
	defer l.done.Done()
	ticker := time.NewTicker(5 * l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			if err := l.runReconcile(ctx); err != nil {
				l.log.Debug("reconcile failed", zap.Error(err))
			}
		}
	}
}

// broadcastLoop drains the engine's unsolicited-operations stream
// (server-initiated pushes outside of a pull response) into
// applyOperations.
func (l *Loop) broadcastLoop(ctx context.Context) {
	defer l.done.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case op, ok := <-l.engine.Operations():
			if !ok {
				return
			}
			if err := l.ApplyOperations(ctx, []syncproto.SyncOperation{op}); err != nil {
				l.log.Warn("apply broadcast operation", zap.Error(err))
			}
		}
	}
}

func (l *Loop) runReconcile(ctx context.Context) error {
	l.pendingMu.Lock()
	ops := l.pending
	l.pending = nil
	l.pendingMu.Unlock()

	resp, err := l.engine.Reconcile(ctx, syncproto.ReconciliationRequest{
		Operations:  ops,
		ClientState: l.Clock(),
		ReplicaID:   l.replica,
		Timestamp:   time.Now().UnixMilli(),
	})
	if err != nil {
		// requeue so the next cycle retries them
		l.pendingMu.Lock()
		l.pending = append(ops, l.pending...)
		l.pendingMu.Unlock()
		return err
	}
	if l.metrics != nil && len(ops) > 0 {
		l.metrics.OperationsPushed.Add(float64(len(ops)))
	}
	return l.IntegrateReconcile(ctx, resp)
}

// ApplyOperations implements the exact sequential algorithm from
// spec §4.5, including the clock-overwrite default documented on
// Loop.preferMerge.
func (l *Loop) ApplyOperations(ctx context.Context, batch []syncproto.SyncOperation) error {
	for _, op := range batch {
		if op.Replica == l.replica {
			continue // loopback
		}

		local := l.Clock()
		if op.Clock.Compare(local) == crdt.Less {
			continue // strictly dominated by local state
		}

		switch op.Kind {
		case syncproto.OpSet:
			if err := l.store.Set(ctx, op.Key, op.Value); err != nil {
				return &Error{Op: "Set", Key: op.Key, Msg: err.Error()}
			}
		case syncproto.OpDelete:
			if err := l.store.Delete(ctx, op.Key); err != nil {
				return &Error{Op: "Delete", Key: op.Key, Msg: err.Error()}
			}
		case syncproto.OpReconcile:
			if op.ServerClock != nil {
				l.mu.Lock()
				l.clock = op.ServerClock.Clone()
				l.mu.Unlock()
			}
		}

		l.mu.Lock()
		if l.preferMerge {
			l.clock = l.clock.Merge(op.Clock)
		} else {
			// Historical behavior (spec §9): unconditionally adopt the
			// applied operation's clock rather than merging it in. This
			// can make the local clock forget progress from replicas
			// absent from op.Clock.
			l.clock = op.Clock.Clone()
		}
		l.mu.Unlock()

		if l.metrics != nil {
			l.metrics.MergesTotal.WithLabelValues(string(op.Kind)).Inc()
		}
	}
	return nil
}

// IntegrateReconcile applies a ReconciliationResponse: server
// operations, a resolved clock, and per-key conflict resolutions.
func (l *Loop) IntegrateReconcile(ctx context.Context, resp syncproto.ReconciliationResponse) error {
	if err := l.ApplyOperations(ctx, resp.ServerOperations); err != nil {
		return err
	}
	if resp.ResolvedState != nil {
		l.mu.Lock()
		l.clock = resp.ResolvedState.Clone()
		l.mu.Unlock()
	}
	for _, c := range resp.Conflicts {
		if l.metrics != nil {
			l.metrics.ConflictsTotal.Inc()
		}
		switch c.Resolution {
		case syncproto.ResolveServer:
			if err := l.store.Set(ctx, c.Key, c.ServerValue); err != nil {
				return &Error{Op: "Set", Key: c.Key, Msg: err.Error()}
			}
		case syncproto.ResolveMerge:
			value := c.ServerValue
			if l.resolver != nil {
				resolved, err := l.resolver(c.Key, c.ClientValue, c.ServerValue)
				if err != nil {
					return &Error{Op: "Resolve", Key: c.Key, Msg: err.Error()}
				}
				value = resolved
			}
			// Without a Resolver, "merge" falls back to the server's
			// value (spec §9): the library has never actually merged
			// here, only relabeled the server value as resolved.
			if err := l.store.Set(ctx, c.Key, value); err != nil {
				return &Error{Op: "Set", Key: c.Key, Msg: err.Error()}
			}
		case syncproto.ResolveClient:
			// client value already authoritative locally; nothing to do.
		}
	}
	return nil
}
