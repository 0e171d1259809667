package session

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo caches values by key. Concurrent misses for the same key share one
// computation; errors are returned to every waiter but never cached.
type Memo[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	group singleflight.Group
}

func NewMemo[K comparable, V any]() *Memo[K, V] {
	return &Memo[K, V]{items: make(map[K]V)}
}

// Get returns the cached value for key, computing it with fn on a miss.
// hit reports whether the value was already cached.
func (m *Memo[K, V]) Get(key K, fn func() (V, error)) (v V, hit bool, err error) {
	return m.GetContext(context.Background(), key, fn)
}

// GetContext is Get for callers that may give up. A caller whose ctx ends
// returns ctx.Err(), while fn keeps running for the other waiters and its
// result is still cached.
func (m *Memo[K, V]) GetContext(ctx context.Context, key K, fn func() (V, error)) (v V, hit bool, err error) {
	if v, ok := m.Peek(key); ok {
		return v, true, nil
	}

	ch := m.group.DoChan(fmt.Sprint(key), func() (any, error) {
		// another caller may have filled the entry while we waited
		if v, ok := m.Peek(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return v, err
		}
		m.mu.Lock()
		m.items[key] = v
		m.mu.Unlock()
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(V), false, nil
	}
}

// Peek returns the cached value without computing anything.
func (m *Memo[K, V]) Peek(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

// Forget drops key.
func (m *Memo[K, V]) Forget(key K) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	m.group.Forget(fmt.Sprint(key))
}

func (m *Memo[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
