// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package cache implements the memoization layer for pure aggregations.
//
// Entries are keyed on a stable hash of (operation, level, canonical filter
// form, store snapshot version) and bounded two ways: a TTL and an LRU
// capacity. Concurrent misses for the same key are coalesced so at most one
// computation runs per key; the others wait for its result. A cancelled
// computation stores nothing.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sigphi/territorium/internal/metrics"
)

// entry is an LRU node with TTL support.
type entry struct {
	key       string
	value     interface{}
	prev      *entry
	next      *entry
	expiresAt time.Time
}

// Memo is a thread-safe memoization cache with O(1) Get, Set and eviction.
// A doubly-linked list keeps usage order; a hashmap gives O(1) lookup,
// following the same layout as the LRU used for geolocation deduplication.
type Memo struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration

	items map[string]*entry

	// head.next is the most recently used, tail.prev the least.
	head *entry
	tail *entry

	hits   int64
	misses int64

	group singleflight.Group
}

// NewMemo creates a memoization cache with the given capacity and TTL.
func NewMemo(capacity int, ttl time.Duration) *Memo {
	if capacity <= 0 {
		capacity = 4096
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	m := &Memo{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
	}
	m.head.next = m.tail
	m.tail.prev = m.head
	return m
}

// flight carries a computed value together with its provenance, so coalesced
// waiters learn whether the leader found a cache entry or ran compute.
type flight struct {
	value     interface{}
	fromCache bool
}

// Do returns the cached value for key, or runs compute exactly once per key
// across concurrent callers and caches its result. The bool reports whether
// the value came from a stored entry; a caller that waited on a concurrent
// computation gets false like the caller that ran it. Errors are never
// cached.
func (m *Memo) Do(ctx context.Context, key string, compute func(ctx context.Context) (interface{}, error)) (interface{}, bool, error) {
	if v, ok := m.Get(key); ok {
		return v, true, nil
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		// Re-check: another caller may have populated the entry between the
		// Get above and the flight start.
		if v, ok := m.Get(key); ok {
			return flight{value: v, fromCache: true}, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			// Cancelled mid-computation: discard, store nothing.
			return nil, ctx.Err()
		}
		m.Set(key, v)
		return flight{value: v}, nil
	})
	if err != nil {
		return nil, false, err
	}
	f := v.(flight)
	return f.value, f.fromCache, nil
}

// Get retrieves a value if present and unexpired, refreshing its LRU position.
func (m *Memo) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		m.misses++
		metrics.MemoMisses.Inc()
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.removeEntry(e)
		m.misses++
		metrics.MemoMisses.Inc()
		return nil, false
	}

	m.moveToFront(e)
	m.hits++
	metrics.MemoHits.Inc()
	return e.value, true
}

// Set stores a value under key, evicting the least recently used entry when
// the cache is at capacity.
func (m *Memo) Set(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.items[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(m.ttl)
		m.moveToFront(e)
		return
	}

	if len(m.items) >= m.capacity {
		if lru := m.tail.prev; lru != m.head {
			m.removeEntry(lru)
		}
	}

	e := &entry{key: key, value: value, expiresAt: time.Now().Add(m.ttl)}
	m.items[key] = e
	m.pushFront(e)
	metrics.MemoSize.Set(float64(len(m.items)))
}

// Invalidate removes one key. The next Do for that key recomputes.
func (m *Memo) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[key]; ok {
		m.removeEntry(e)
	}
}

// Clear removes all entries. Called when the store snapshot advances or the
// serving CRS changes.
func (m *Memo) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*entry, m.capacity)
	m.head.next = m.tail
	m.tail.prev = m.head
	metrics.MemoSize.Set(0)
}

// Len returns the current entry count.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Stats reports hit/miss counters.
func (m *Memo) Stats() (hits, misses int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// moveToFront moves an existing entry to most-recently-used position.
// Caller must hold mu.
func (m *Memo) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	m.pushFront(e)
}

// pushFront links e directly after the head sentinel. Caller must hold mu.
func (m *Memo) pushFront(e *entry) {
	e.prev = m.head
	e.next = m.head.next
	m.head.next.prev = e
	m.head.next = e
}

// removeEntry unlinks e and drops it from the map. Caller must hold mu.
func (m *Memo) removeEntry(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(m.items, e.key)
	metrics.MemoSize.Set(float64(len(m.items)))
}
