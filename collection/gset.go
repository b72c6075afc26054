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

// GSet is a facade over a crdt.GSet[T] stored at one key.
type GSet[T comparable] struct{ base }

// NewGSet binds a GSet facade to name.
func NewGSet[T comparable](name, replica string, store storage.Store, engine transport.Engine, loop *replicate.Loop, log *zap.Logger) *GSet[T] {
	return &GSet[T]{base: newBase(name, replica, store, engine, loop, log)}
}

func (f *GSet[T]) load(ctx context.Context) crdt.GSet[T] {
	v, err := f.store.Get(ctx, f.name)
	if err != nil {
		return crdt.NewGSet[T]()
	}
	s, ok := v.(crdt.GSet[T])
	if !ok {
		return crdt.NewGSet[T]()
	}
	return s
}

// Add inserts value into the set.
func (f *GSet[T]) Add(ctx context.Context, value T) error {
	next := f.load(ctx).Add(value)
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// Has reports whether value is a member.
func (f *GSet[T]) Has(ctx context.Context, value T) bool {
	return f.load(ctx).Has(value)
}

// Values returns the set's current elements.
func (f *GSet[T]) Values(ctx context.Context) []T {
	return f.load(ctx).Values()
}
