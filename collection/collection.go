// Package collection binds each CRDT type to a named storage key,
// implementing the read-modify-write-then-emit pattern from spec
// §4.6: a mutation reads the current value (or the type's empty()
// on a miss), applies the CRDT's own mutator, writes the whole value
// back, advances the local vector clock, and hands a SyncOperation to
// the transport. Transport errors on the write path are swallowed —
// local storage is authoritative offline; when a replicate.Loop is
// attached, the operation is also queued for its next reconcile cycle.
package collection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Polqt/syncdb/crdt"
	"github.com/Polqt/syncdb/replicate"
	"github.com/Polqt/syncdb/storage"
	"github.com/Polqt/syncdb/syncproto"
	"github.com/Polqt/syncdb/transport"
)

// base is embedded by every typed facade; it carries everything a
// facade needs to talk to storage, the clock, and the transport
// without repeating the wiring in each file.
type base struct {
	name    string
	replica string
	store   storage.Store
	engine  transport.Engine
	loop    *replicate.Loop
	log     *zap.Logger
}

func newBase(name, replica string, store storage.Store, engine transport.Engine, loop *replicate.Loop, log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{name: name, replica: replica, store: store, engine: engine, loop: loop, log: log}
}

// publish advances the local clock, builds the envelope, pushes it
// (swallowing transport errors per the offline-first write contract),
// and enqueues it for the next reconcile cycle.
func (b base) publish(ctx context.Context, kind syncproto.OpKind, value any) {
	op := syncproto.SyncOperation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Key:       b.name,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
		Replica:   b.replica,
		Clock:     b.advanceClock(),
	}
	if b.engine != nil {
		if err := b.engine.Push(ctx, []syncproto.SyncOperation{op}); err != nil {
			b.log.Debug("push swallowed (offline-first write)", zap.String("key", b.name), zap.Error(err))
		}
	}
	if b.loop != nil {
		b.loop.Enqueue(op)
	}
}

func (b base) advanceClock() crdt.VClock {
	if b.loop != nil {
		return b.loop.AdvanceLocal()
	}
	return crdt.NewVClock().Increment(b.replica)
}
