// Package lru provides a fixed-capacity LRU cache with O(1) Get and Put.
//
// Entries live in a flat arena. Recency links and index handles are slot
// numbers into that arena, and two sentinel slots bound the recency list so
// that linking and unlinking never special-case the ends.
//
// A Cache is not safe for concurrent use. Wrap it in a Locked when more than
// one goroutine needs the same instance.
package lru

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned by New when the cache cannot be built
// from the given parameters.
var ErrInvalidConfiguration = errors.New("invalid cache configuration")

// Sentinel slots. Neither ever holds an entry.
const (
	head = 0
	tail = 1
)

// preallocLimit caps how many arena slots New reserves up front; larger
// caches grow the arena as entries arrive.
const preallocLimit = 1024

type node[K comparable, V any] struct {
	key   K
	value V
	prev  int
	next  int
}

// Cache is an LRU cache holding at most Cap() entries.
// The zero value is not usable; construct instances with New.
type Cache[K comparable, V any] struct {
	capacity int
	index    map[K]int
	nodes    []node[K, V] // front = most recently used, back = least
	stats    Stats
	onEvict  func(key K, value V)
}

// Option configures a Cache at construction.
type Option[K comparable, V any] func(*Cache[K, V])

// WithEvictCallback registers fn to be called with every evicted entry.
// It runs after the victim has left the cache and before its replacement is
// inserted. fn must not call back into the cache.
func WithEvictCallback[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates a cache that holds at most capacity entries.
// A capacity below one fails with an error wrapping ErrInvalidConfiguration.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfiguration, capacity)
	}

	reserve := min(capacity, preallocLimit)
	c := &Cache[K, V]{
		capacity: capacity,
		index:    make(map[K]int, reserve),
		nodes:    make([]node[K, V], 2, reserve+2),
	}
	c.nodes[head].next = tail
	c.nodes[tail].prev = head

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the value stored for key and marks it most recently used.
// A miss returns the zero value and false and leaves the ordering untouched.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	i, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.stats.Hits++
	c.moveToFront(i)
	return c.nodes[i].value, true
}

// Put stores value under key and marks it most recently used.
// Adding a new key to a full cache first evicts the least recently used entry.
func (c *Cache[K, V]) Put(key K, value V) {
	if i, ok := c.index[key]; ok {
		c.nodes[i].value = value
		c.moveToFront(i)
		c.stats.Updates++
		return
	}

	var i int
	if len(c.index) < c.capacity {
		// Slots are only ever recycled by eviction, so a cache below
		// capacity has no free slot and the arena grows by one.
		i = len(c.nodes)
		c.nodes = append(c.nodes, node[K, V]{})
	} else {
		i = c.evict()
	}

	c.nodes[i] = node[K, V]{key: key, value: value}
	c.pushFront(i)
	c.index[key] = i
	c.stats.Inserts++
}

// Peek returns the value for key without changing its recency.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	if i, ok := c.index[key]; ok {
		return c.nodes[i].value, true
	}
	var zero V
	return zero, false
}

// Contains reports whether key is cached, without changing its recency.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.index[key]
	return ok
}

// Oldest returns the entry that the next eviction would remove.
func (c *Cache[K, V]) Oldest() (K, V, bool) {
	if len(c.index) == 0 {
		var (
			zeroK K
			zeroV V
		)
		return zeroK, zeroV, false
	}
	n := c.nodes[c.nodes[tail].prev]
	return n.key, n.value, true
}

// Keys returns the cached keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.index))
	for i := c.nodes[head].next; i != tail; i = c.nodes[i].next {
		keys = append(keys, c.nodes[i].key)
	}
	return keys
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return len(c.index)
}

// Cap returns the maximum number of entries.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	return c.stats
}

// evict removes the least recently used entry from both the list and the
// index and returns its now unused slot.
func (c *Cache[K, V]) evict() int {
	i := c.nodes[tail].prev
	victim := c.nodes[i]

	c.unlink(i)
	delete(c.index, victim.key)
	c.stats.Evictions++

	if c.onEvict != nil {
		c.onEvict(victim.key, victim.value)
	}
	return i
}

func (c *Cache[K, V]) moveToFront(i int) {
	if c.nodes[head].next == i {
		return
	}
	c.unlink(i)
	c.pushFront(i)
}

func (c *Cache[K, V]) pushFront(i int) {
	first := c.nodes[head].next
	c.nodes[i].prev = head
	c.nodes[i].next = first
	c.nodes[first].prev = i
	c.nodes[head].next = i
}

func (c *Cache[K, V]) unlink(i int) {
	prev, next := c.nodes[i].prev, c.nodes[i].next
	c.nodes[prev].next = next
	c.nodes[next].prev = prev
}
