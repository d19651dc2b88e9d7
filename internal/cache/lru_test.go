// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package cache

import (
	"fmt"
	"testing"
	"time"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLayerGetSetRoundTrip(t *testing.T) {
	l := NewLayer("health", 30*time.Second, 8)

	l.Set("server:a:latest", 42)
	v, ok := l.Get("server:a:latest")
	if !ok {
		t.Fatal("expected hit for freshly set key")
	}
	if v.(int) != 42 {
		t.Fatalf("got %v, want 42", v)
	}
	if _, ok := l.Get("server:b:latest"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestLayerExpiry(t *testing.T) {
	clock := newFakeClock()
	l := NewLayer("health", 30*time.Second, 8)
	l.now = clock.now

	l.SetTTL("k", "v", time.Second)
	if _, ok := l.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	clock.advance(1100 * time.Millisecond)
	if _, ok := l.Get("k"); ok {
		t.Fatal("expected miss after TTL elapsed")
	}
	// The expired entry must have been purged, not just hidden.
	if got := l.Len(); got != 0 {
		t.Fatalf("expired entry not purged, len = %d", got)
	}
	st := l.Stats()
	if st.Expired != 1 {
		t.Fatalf("expired counter = %d, want 1", st.Expired)
	}
}

func TestLayerStrictLRUEviction(t *testing.T) {
	l := NewLayer("command", time.Minute, 3)

	l.Set("a", 1)
	l.Set("b", 2)
	l.Set("c", 3)

	// Touch a so b becomes the least recently used.
	if _, ok := l.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}

	l.Set("d", 4)
	if _, ok := l.Get("b"); ok {
		t.Fatal("expected b to be evicted as least recently used")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := l.Get(key); !ok {
			t.Fatalf("expected %s to survive eviction", key)
		}
	}
	if st := l.Stats(); st.Evictions != 1 {
		t.Fatalf("evictions = %d, want 1", st.Evictions)
	}
}

func TestLayerAdaptiveTTL(t *testing.T) {
	l := NewLayer("trend", 120*time.Second, 8)

	// Unseen key: cold, half the base.
	if got := l.TTLFor("cold"); got != 60*time.Second {
		t.Fatalf("cold TTL = %v, want 60s", got)
	}

	// Between the thresholds: base TTL unchanged.
	l.Get("warm")
	l.Get("warm")
	if got := l.TTLFor("warm"); got != 120*time.Second {
		t.Fatalf("warm TTL = %v, want 120s", got)
	}

	// Popular key: doubled but capped at the adaptive maximum.
	for i := 0; i < 5; i++ {
		l.Get("hot")
	}
	if got := l.TTLFor("hot"); got != 240*time.Second {
		t.Fatalf("hot TTL = %v, want 240s", got)
	}

	// A long base TTL doubles into the cap.
	meta := NewLayer("metadata", 300*time.Second, 8)
	for i := 0; i < 6; i++ {
		meta.Get("hot")
	}
	if got := meta.TTLFor("hot"); got != maxAdaptiveTTL {
		t.Fatalf("capped TTL = %v, want %v", got, maxAdaptiveTTL)
	}

	// A short base TTL never halves below the floor.
	short := NewLayer("short", 12*time.Second, 8)
	if got := short.TTLFor("cold"); got != minAdaptiveTTL {
		t.Fatalf("floored TTL = %v, want %v", got, minAdaptiveTTL)
	}
}

func TestLayerAdaptiveTTLAppliedOnSet(t *testing.T) {
	clock := newFakeClock()
	l := NewLayer("health", 30*time.Second, 8)
	l.now = clock.now

	// Popularity accrues across read-through misses.
	for i := 0; i < 5; i++ {
		l.Get("hot")
	}
	l.Set("hot", "v")

	// Past the base TTL but inside the doubled one.
	clock.advance(45 * time.Second)
	if _, ok := l.Get("hot"); !ok {
		t.Fatal("popular key should outlive the base TTL")
	}
	clock.advance(20 * time.Second)
	if _, ok := l.Get("hot"); ok {
		t.Fatal("popular key should still expire after the doubled TTL")
	}
}

func TestLayerInvalidatePrefix(t *testing.T) {
	l := NewLayer("health", time.Minute, 16)

	l.Set("server:alpha:latest", 1)
	l.Set("server:alpha:trends:24", 2)
	l.Set("server:beta:latest", 3)

	if dropped := l.InvalidatePrefix("server:alpha"); dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
	if _, ok := l.Get("server:alpha:latest"); ok {
		t.Fatal("alpha entries should be gone")
	}
	if _, ok := l.Get("server:beta:latest"); !ok {
		t.Fatal("beta entry should survive")
	}
}

func TestLayerSweep(t *testing.T) {
	clock := newFakeClock()
	l := NewLayer("health", 30*time.Second, 16)
	l.now = clock.now

	l.SetTTL("short", 1, time.Second)
	l.SetTTL("long", 2, time.Hour)

	clock.advance(2 * time.Second)
	if dropped := l.Sweep(); dropped != 1 {
		t.Fatalf("sweep dropped %d, want 1", dropped)
	}
	if l.Len() != 1 {
		t.Fatalf("len = %d, want 1", l.Len())
	}
	if _, ok := l.Get("long"); !ok {
		t.Fatal("unexpired entry dropped by sweep")
	}
}

func TestLayerAccessTrackerBounded(t *testing.T) {
	l := NewLayer("tiny", time.Minute, 2)

	for i := 0; i < 100; i++ {
		l.Get(fmt.Sprintf("key-%d", i))
	}
	l.mu.Lock()
	size := len(l.access)
	l.mu.Unlock()
	if size > l.capacity*4+1 {
		t.Fatalf("access tracker grew unbounded: %d entries", size)
	}
}

func TestLayerConcurrentAccess(t *testing.T) {
	l := NewLayer("health", time.Minute, 64)

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("server:%d:%d", w, i%16)
				l.Set(key, i)
				l.Get(key)
				if i%50 == 0 {
					l.InvalidatePrefix(fmt.Sprintf("server:%d", w))
				}
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		<-done
	}
	if l.Len() > 64 {
		t.Fatalf("len %d exceeds capacity", l.Len())
	}
}
