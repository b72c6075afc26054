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

// ORMap is a facade over a crdt.ORMap[T] stored at one key.
type ORMap[T any] struct{ base }

// NewORMap binds an ORMap facade to name.
func NewORMap[T any](name, replica string, store storage.Store, engine transport.Engine, loop *replicate.Loop, log *zap.Logger) *ORMap[T] {
	return &ORMap[T]{base: newBase(name, replica, store, engine, loop, log)}
}

func (f *ORMap[T]) load(ctx context.Context) crdt.ORMap[T] {
	v, err := f.store.Get(ctx, f.name)
	if err != nil {
		return crdt.NewORMap[T]()
	}
	m, ok := v.(crdt.ORMap[T])
	if !ok {
		return crdt.NewORMap[T]()
	}
	return m
}

// Put sets key to value, stamped at the current time.
func (f *ORMap[T]) Put(ctx context.Context, key string, value T) error {
	next := f.load(ctx).Put(key, value, time.Now().UnixMilli())
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// Remove marks key removed at the current time.
func (f *ORMap[T]) Remove(ctx context.Context, key string) error {
	next := f.load(ctx).Remove(key, time.Now().UnixMilli())
	if err := f.store.Set(ctx, f.name, next); err != nil {
		return err
	}
	f.publish(ctx, syncproto.OpSet, next)
	return nil
}

// Get returns key's current value, if visible.
func (f *ORMap[T]) Get(ctx context.Context, key string) (T, bool) {
	return f.load(ctx).Get(key)
}

// Keys returns the currently visible keys.
func (f *ORMap[T]) Keys(ctx context.Context) []string {
	return f.load(ctx).Keys()
}
