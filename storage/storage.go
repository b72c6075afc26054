// Package storage defines the key/value backend contract the
// replication engine and collection facades treat as opaque, plus two
// reference implementations (an in-process map and a Redis-backed
// store) used by the default "syncdbd serve" configuration and by
// this repository's own tests.
package storage

import "context"

// Error reports a storage-layer failure, e.g. a missing key on Get.
type Error struct {
	Op  string
	Key string
	Msg string
}

func (e *Error) Error() string {
	if e.Key != "" {
		return "storage: " + e.Op + " " + e.Key + ": " + e.Msg
	}
	return "storage: " + e.Op + ": " + e.Msg
}

func errKeyNotFound(op, key string) *Error {
	return &Error{Op: op, Key: key, Msg: "key not found"}
}

// Store is the key/value contract every backend implements. Values are
// opaque to the store; callers are responsible for whatever encoding
// they choose (collection facades store whole CRDT values).
type Store interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	// Watch returns a channel that receives the new value every time
	// key changes. Delivery is at-least-once, never exactly-once; the
	// channel is closed when ctx is done.
	Watch(ctx context.Context, key string) (<-chan any, error)
}

// RawStore is an optional extension for backends that can also expose
// a byte-oriented view of a key (e.g. for wire-compatible dumps).
type RawStore interface {
	GetRaw(ctx context.Context, key string) ([]byte, error)
	SetRaw(ctx context.Context, key string, value []byte) error
}

// Codec serializes/deserializes the data-model overloads described in
// the storage interface's "two optional extensions" (§4.3).
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// GetWithModel fetches key's raw bytes and decodes them into v using
// codec.
func GetWithModel(ctx context.Context, s RawStore, codec Codec, key string, v any) error {
	raw, err := s.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	return codec.Unmarshal(raw, v)
}

// SetWithModel encodes v with codec and writes the resulting bytes to
// key.
func SetWithModel(ctx context.Context, s RawStore, codec Codec, key string, v any) error {
	raw, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	return s.SetRaw(ctx, key, raw)
}
