// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package cache implements the multi-layer read cache: independent
// LRU+TTL layers keyed by logical query, with adaptive TTL driven by
// observed key popularity.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// Adaptive TTL bounds. Popular keys trade freshness for load reduction,
// rarely-read keys expire fast so they never serve long-stale data.
const (
	maxAdaptiveTTL = 300 * time.Second
	minAdaptiveTTL = 10 * time.Second

	// popularThreshold marks a key popular at this many accesses;
	// coldThreshold and below halves the base TTL.
	popularThreshold = 5
	coldThreshold    = 2
)

// entry is one cached value in a layer.
type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// LayerStats reports one layer's counters for health reporting.
type LayerStats struct {
	Name      string `json:"name"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	Evictions int64  `json:"evictions"`
	Expired   int64  `json:"expired"`
}

// Layer is one LRU+TTL cache. Safe for concurrent use; eviction on
// overflow is strict LRU, expiry is lazy on access plus periodic sweep.
type Layer struct {
	name     string
	baseTTL  time.Duration
	capacity int

	mu     sync.Mutex
	items  map[string]*list.Element
	order  *list.List // front = most recent
	access map[string]int

	hits      int64
	misses    int64
	evictions int64
	expired   int64

	// now is replaceable for TTL tests.
	now func() time.Time
}

// NewLayer creates a cache layer with the given base TTL and capacity.
func NewLayer(name string, baseTTL time.Duration, capacity int) *Layer {
	if capacity < 1 {
		capacity = 1
	}
	return &Layer{
		name:     name,
		baseTTL:  baseTTL,
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		access:   make(map[string]int),
		now:      time.Now,
	}
}

// Get returns the cached value for key. A miss is reported both when the
// key is absent and when its entry expired; expired entries are purged
// on access.
func (l *Layer) Get(key string) (interface{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trackAccess(key)

	el, ok := l.items[key]
	if !ok {
		l.misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if l.now().After(e.expiresAt) {
		l.removeElement(el)
		l.expired++
		l.misses++
		return nil, false
	}
	l.order.MoveToFront(el)
	l.hits++
	return e.value, true
}

// Set stores a value with an adaptive TTL derived from the key's observed
// access count.
func (l *Layer) Set(key string, value interface{}) {
	l.SetTTL(key, value, 0)
}

// SetTTL stores a value with an explicit TTL. A zero ttl selects the
// adaptive TTL.
func (l *Layer) SetTTL(key string, value interface{}, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ttl <= 0 {
		ttl = l.adaptiveTTL(key)
	}
	expiresAt := l.now().Add(ttl)

	if el, ok := l.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		l.order.MoveToFront(el)
		return
	}

	el := l.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	l.items[key] = el

	for len(l.items) > l.capacity {
		oldest := l.order.Back()
		if oldest == nil {
			break
		}
		l.removeElement(oldest)
		l.evictions++
	}
}

// TTLFor exposes the TTL the layer would assign the key right now.
func (l *Layer) TTLFor(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adaptiveTTL(key)
}

// adaptiveTTL scales the base TTL with the key's access count: popular
// keys get up to twice the base (capped), cold keys half (floored).
// Caller must hold the lock.
func (l *Layer) adaptiveTTL(key string) time.Duration {
	count := l.access[key]
	switch {
	case count >= popularThreshold:
		ttl := 2 * l.baseTTL
		if ttl > maxAdaptiveTTL {
			ttl = maxAdaptiveTTL
		}
		if ttl < l.baseTTL {
			ttl = l.baseTTL
		}
		return ttl
	case count < coldThreshold:
		ttl := l.baseTTL / 2
		if ttl < minAdaptiveTTL {
			ttl = minAdaptiveTTL
		}
		if ttl > l.baseTTL {
			ttl = l.baseTTL
		}
		return ttl
	default:
		return l.baseTTL
	}
}

// trackAccess counts key popularity. The tracker is bounded: it resets
// wholesale when it outgrows the layer several times over, which is
// cheaper than precise per-key aging and close enough for TTL shaping.
// Caller must hold the lock.
func (l *Layer) trackAccess(key string) {
	if len(l.access) > l.capacity*4 {
		l.access = make(map[string]int)
	}
	l.access[key]++
}

// Invalidate removes a key. Returns whether it was present.
func (l *Layer) Invalidate(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.items[key]
	if !ok {
		return false
	}
	l.removeElement(el)
	return true
}

// InvalidatePrefix removes every key with the given prefix and returns
// how many were dropped.
func (l *Layer) InvalidatePrefix(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for key, el := range l.items {
		if strings.HasPrefix(key, prefix) {
			l.removeElement(el)
			dropped++
		}
	}
	return dropped
}

// Sweep purges expired entries and returns how many were dropped.
func (l *Layer) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for _, el := range l.items {
		if now.After(el.Value.(*entry).expiresAt) {
			l.removeElement(el)
			l.expired++
			dropped++
		}
	}
	return dropped
}

// Purge drops every entry and resets popularity tracking.
func (l *Layer) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = make(map[string]*list.Element)
	l.order.Init()
	l.access = make(map[string]int)
}

// Len returns the number of live entries (including not-yet-purged
// expired ones).
func (l *Layer) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Stats returns the layer's counters.
func (l *Layer) Stats() LayerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LayerStats{
		Name:      l.name,
		Size:      len(l.items),
		Capacity:  l.capacity,
		Hits:      l.hits,
		Misses:    l.misses,
		Evictions: l.evictions,
		Expired:   l.expired,
	}
}

// removeElement drops an element from both index and order list.
// Caller must hold the lock.
func (l *Layer) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	delete(l.items, e.key)
	l.order.Remove(el)
}
