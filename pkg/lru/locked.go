package lru

import "sync"

// Locked serialises every operation on a Cache behind one mutex so the same
// instance can be shared between goroutines. Get takes the exclusive lock
// too, since a hit reorders the recency list.
type Locked[K comparable, V any] struct {
	mu    sync.Mutex
	cache *Cache[K, V]
}

// NewLocked creates a Locked cache with the given capacity.
func NewLocked[K comparable, V any](capacity int, opts ...Option[K, V]) (*Locked[K, V], error) {
	c, err := New(capacity, opts...)
	if err != nil {
		return nil, err
	}
	return &Locked[K, V]{cache: c}, nil
}

func (l *Locked[K, V]) Get(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Get(key)
}

func (l *Locked[K, V]) Put(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Put(key, value)
}

func (l *Locked[K, V]) Peek(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Peek(key)
}

func (l *Locked[K, V]) Contains(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Contains(key)
}

func (l *Locked[K, V]) Keys() []K {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Keys()
}

func (l *Locked[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Len()
}

// Cap needs no lock; capacity never changes after construction.
func (l *Locked[K, V]) Cap() int {
	return l.cache.Cap()
}

func (l *Locked[K, V]) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Stats()
}
