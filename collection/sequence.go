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

// Sequence is a facade over a crdt.RGA[T] stored at one key.
type Sequence[T any] struct{ base }

// NewSequence binds a Sequence facade to name.
func NewSequence[T any](name, replica string, store storage.Store, engine transport.Engine, loop *replicate.Loop, log *zap.Logger) *Sequence[T] {
	return &Sequence[T]{base: newBase(name, replica, store, engine, loop, log)}
}

func (f *Sequence[T]) load(ctx context.Context) crdt.RGA[T] {
	v, err := f.store.Get(ctx, f.name)
	if err != nil {
		return crdt.NewRGA[T](f.replica)
	}
	r, ok := v.(crdt.RGA[T])
	if !ok {
		return crdt.NewRGA[T](f.replica)
	}
	return r
}

// Append adds value at the end of the sequence.
func (f *Sequence[T]) Append(ctx context.Context, value T) error {
	next, _ := f.load(ctx).Append(value, time.Now().UnixMilli())
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// InsertAt inserts value so it lands at visible index idx.
func (f *Sequence[T]) InsertAt(ctx context.Context, idx int, value T) error {
	next, _, err := f.load(ctx).InsertAt(idx, value, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// RemoveAt tombstones the element currently at visible index idx.
func (f *Sequence[T]) RemoveAt(ctx context.Context, idx int) error {
	next, err := f.load(ctx).RemoveAt(idx)
	if err != nil {
		return err
	}
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// ToArray returns the logical sequence of live values in order.
func (f *Sequence[T]) ToArray(ctx context.Context) []T {
	return f.load(ctx).ToArray()
}

// Len returns the number of live elements.
func (f *Sequence[T]) Len(ctx context.Context) int {
	return f.load(ctx).Len()
}
