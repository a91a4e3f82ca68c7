// Package cache provides a bounded cache that runs at most one computation
// per key at a time and shares its result with every concurrent caller.
package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSize = 1000

// Observer receives cache events. Implementations must be safe for concurrent use.
type Observer interface {
	Hit()
	Miss()
	Shared()
	Evicted()
	Failed()
}

type noopObserver struct{}

func (noopObserver) Hit()     {}
func (noopObserver) Miss()    {}
func (noopObserver) Shared()  {}
func (noopObserver) Evicted() {}
func (noopObserver) Failed()  {}

type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// SingleFlight is a bounded LRU cache with per-key in-flight deduplication.
// Failed computations are never stored. Eviction order is an implementation
// detail.
type SingleFlight[K comparable, V any] struct {
	mu       sync.Mutex
	entries  *lru.Cache[K, V]
	inflight map[K]*call[V]
	observer Observer
}

type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver reports hits, misses, shared waits, evictions and failures.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

func NewSingleFlight[K comparable, V any](size int, opts ...Option) (*SingleFlight[K, V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	o := &options{observer: noopObserver{}}
	for _, opt := range opts {
		opt(o)
	}

	c := &SingleFlight[K, V]{
		inflight: make(map[K]*call[V]),
		observer: o.observer,
	}
	entries, err := lru.NewWithEvict[K, V](size, func(K, V) {
		c.observer.Evicted()
	})
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c.entries = entries
	return c, nil
}

// Get returns the cached value for key, or runs compute exactly once among
// concurrent callers and hands every one of them the same outcome.
func (c *SingleFlight[K, V]) Get(key K, compute func() (V, error)) (V, error) {
	c.mu.Lock()
	if val, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		c.observer.Hit()
		return val, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		c.observer.Shared()
		<-cl.done
		return cl.val, cl.err
	}

	cl := &call[V]{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()
	c.observer.Miss()

	c.run(key, cl, compute)
	return cl.val, cl.err
}

func (c *SingleFlight[K, V]) run(key K, cl *call[V], compute func() (V, error)) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			cl.val = zero
			cl.err = fmt.Errorf("cache: compute panicked: %v", r)
		}

		c.mu.Lock()
		if cl.err == nil {
			c.entries.Add(key, cl.val)
		}
		delete(c.inflight, key)
		c.mu.Unlock()

		if cl.err != nil {
			c.observer.Failed()
		}
		close(cl.done)
	}()

	cl.val, cl.err = compute()
}

// Len is the number of stored entries, excluding in-flight computations.
func (c *SingleFlight[K, V]) Len() int {
	return c.entries.Len()
}

func (c *SingleFlight[K, V]) Contains(key K) bool {
	return c.entries.Contains(key)
}

// Shrink drops roughly fraction of the stored entries, oldest first, and
// returns how many were removed.
func (c *SingleFlight[K, V]) Shrink(fraction float64) int {
	if fraction <= 0 {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := int(float64(c.entries.Len())*fraction + 0.5)
	removed := 0
	for i := 0; i < n; i++ {
		if _, _, ok := c.entries.RemoveOldest(); !ok {
			break
		}
		removed++
	}
	return removed
}

func (c *SingleFlight[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}
