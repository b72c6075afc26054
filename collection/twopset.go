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

// TwoPSet is a facade over a crdt.TwoPSet[T] stored at one key.
type TwoPSet[T comparable] struct{ base }

// NewTwoPSet binds a TwoPSet facade to name.
func NewTwoPSet[T comparable](name, replica string, store storage.Store, engine transport.Engine, loop *replicate.Loop, log *zap.Logger) *TwoPSet[T] {
	return &TwoPSet[T]{base: newBase(name, replica, store, engine, loop, log)}
}

func (f *TwoPSet[T]) load(ctx context.Context) crdt.TwoPSet[T] {
	v, err := f.store.Get(ctx, f.name)
	if err != nil {
		return crdt.NewTwoPSet[T]()
	}
	s, ok := v.(crdt.TwoPSet[T])
	if !ok {
		return crdt.NewTwoPSet[T]()
	}
	return s
}

// Add inserts value, unless it was already removed.
func (f *TwoPSet[T]) Add(ctx context.Context, value T) error {
	next := f.load(ctx).Add(value)
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// Remove permanently excludes value.
func (f *TwoPSet[T]) Remove(ctx context.Context, value T) error {
	next := f.load(ctx).Remove(value)
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// Has reports whether value is currently visible.
func (f *TwoPSet[T]) Has(ctx context.Context, value T) bool {
	return f.load(ctx).Has(value)
}

// Values returns the currently visible elements.
func (f *TwoPSet[T]) Values(ctx context.Context) []T {
	return f.load(ctx).Values()
}
