package storage

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is an in-process Store. With a zero Capacity it is a plain
// unbounded map; with Capacity > 0, eviction of the least-recently-used
// key is delegated to hashicorp/golang-lru so long-running replicas
// with a partial-sync scope don't grow without bound.
type Memory struct {
	mu       sync.RWMutex
	data     map[string]any
	lru      *lru.Cache[string, any]
	watchers map[string][]chan any

	// evictMu/evicted buffer keys golang-lru evicts from inside
	// lru.Cache.Add, which runs the OnEvict callback synchronously
	// while mu is still held by the caller of Add. Notifying directly
	// from that callback would re-enter mu via notify's RLock on the
	// same goroutine, deadlocking against the write lock above it.
	// Collecting the keys under a separate mutex and flushing them
	// once mu is released avoids that.
	evictMu sync.Mutex
	evicted []string
}

// NewMemory returns an unbounded in-process store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]any), watchers: make(map[string][]chan any)}
}

// NewBoundedMemory returns an in-process store that evicts the
// least-recently-used key once it holds more than capacity entries.
func NewBoundedMemory(capacity int) (*Memory, error) {
	m := &Memory{watchers: make(map[string][]chan any)}
	c, err := lru.NewWithEvict[string, any](capacity, func(key string, _ any) {
		m.evictMu.Lock()
		m.evicted = append(m.evicted, key)
		m.evictMu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	m.lru = c
	return m, nil
}

// flushEvictions notifies watchers of any keys golang-lru evicted
// during the most recent Add, then clears the buffer. Must be called
// with mu not held.
func (m *Memory) flushEvictions() {
	m.evictMu.Lock()
	keys := m.evicted
	m.evicted = nil
	m.evictMu.Unlock()
	for _, k := range keys {
		m.notify(k, nil)
	}
}

func (m *Memory) Get(_ context.Context, key string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lru != nil {
		if v, ok := m.lru.Get(key); ok {
			return v, nil
		}
		return nil, errKeyNotFound("Get", key)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, errKeyNotFound("Get", key)
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	m.mu.Lock()
	if m.lru != nil {
		m.lru.Add(key, value)
	} else {
		m.data[key] = value
	}
	m.mu.Unlock()
	if m.lru != nil {
		m.flushEvictions()
	}
	m.notify(key, value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	if m.lru != nil {
		m.lru.Remove(key)
	} else {
		delete(m.data, key)
	}
	m.mu.Unlock()
	if m.lru != nil {
		m.flushEvictions()
	}
	m.notify(key, nil)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	if m.lru != nil {
		m.lru.Purge()
	} else {
		m.data = make(map[string]any)
	}
	m.mu.Unlock()
	if m.lru != nil {
		m.flushEvictions()
	}
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lru != nil {
		return m.lru.Keys(), nil
	}
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out, nil
}

func (m *Memory) Watch(ctx context.Context, key string) (<-chan any, error) {
	ch := make(chan any, 1)
	m.mu.Lock()
	m.watchers[key] = append(m.watchers[key], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.watchers[key]
		for i, c := range subs {
			if c == ch {
				m.watchers[key] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (m *Memory) notify(key string, value any) {
	m.mu.RLock()
	subs := append([]chan any(nil), m.watchers[key]...)
	m.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- value:
		default:
			// at-least-once, not exactly-once: a full buffer drops the
			// notification rather than blocking the writer.
		}
	}
}
