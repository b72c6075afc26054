package collection

import (
	"context"

	"go.uber.org/zap"

	"github.com/Polqt/syncdb/crdt"
	"github.com/Polqt/syncdb/replicate"
	"github.com/Polqt/syncdb/storage"
	"github.com/Polqt/syncdb/syncproto"
	"github.com/Polqt/syncdb/transport"
)

// Counter is a facade over a crdt.PNCounter stored at one key.
type Counter struct{ base }

// NewCounter binds a Counter facade to name.
func NewCounter(name, replica string, store storage.Store, engine transport.Engine, loop *replicate.Loop, log *zap.Logger) *Counter {
	return &Counter{base: newBase(name, replica, store, engine, loop, log)}
}

func (f *Counter) load(ctx context.Context) crdt.PNCounter {
	v, err := f.store.Get(ctx, f.name)
	if err != nil {
		return crdt.NewPNCounter()
	}
	c, ok := v.(crdt.PNCounter)
	if !ok {
		return crdt.NewPNCounter()
	}
	return c
}

// Increment raises the counter by delta from this replica.
func (f *Counter) Increment(ctx context.Context, delta uint64) error {
	next := f.load(ctx).Increment(f.replica, delta)
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// Decrement lowers the counter by delta from this replica.
func (f *Counter) Decrement(ctx context.Context, delta uint64) error {
	next := f.load(ctx).Decrement(f.replica, delta)
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// Value returns the counter's current value.
func (f *Counter) Value(ctx context.Context) int64 {
	return f.load(ctx).Value()
}
