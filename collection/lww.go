package collection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Polqt/syncdb/crdt"
	"github.com/Polqt/syncdb/replicate"
	"github.com/Polqt/syncdb/storage"
	"github.com/Polqt/syncdb/syncproto"
	"github.com/Polqt/syncdb/transport"
)

// LWW is a facade over an crdt.LWWRegister[T] stored at one key.
type LWW[T any] struct{ base }

// NewLWW binds a LWWRegister facade to name.
func NewLWW[T any](name, replica string, store storage.Store, engine transport.Engine, loop *replicate.Loop, log *zap.Logger) *LWW[T] {
	return &LWW[T]{base: newBase(name, replica, store, engine, loop, log)}
}

func (f *LWW[T]) load(ctx context.Context) (crdt.LWWRegister[T], error) {
	v, err := f.store.Get(ctx, f.name)
	if err != nil {
		return crdt.NewLWWRegister[T](), nil
	}
	reg, ok := v.(crdt.LWWRegister[T])
	if !ok {
		return crdt.NewLWWRegister[T](), nil
	}
	return reg, nil
}

// SetValue overwrites the register with val, stamped at the current
// time by this replica.
func (f *LWW[T]) SetValue(ctx context.Context, val T) error {
	reg, err := f.load(ctx)
	if err != nil {
		return err
	}
	next := reg.Set(val, time.Now().UnixMilli(), f.replica)
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// GetValue returns the register's current value, if ever set.
func (f *LWW[T]) GetValue(ctx context.Context) (T, bool, error) {
	reg, err := f.load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	v, _, has := reg.Get()
	return v, has, nil
}

// Watch returns a stream of the register's value every time it changes.
func (f *LWW[T]) Watch(ctx context.Context) (<-chan T, error) {
	raw, err := f.store.Watch(ctx, f.name)
	if err != nil {
		return nil, err
	}
	out := make(chan T)
	go func() {
		defer close(out)
		for v := range raw {
			reg, ok := v.(crdt.LWWRegister[T])
			if !ok {
				continue
			}
			val, _, has := reg.Get()
			if !has {
				continue
			}
			select {
			case out <- val:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
