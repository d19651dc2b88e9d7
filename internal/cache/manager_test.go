// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package cache

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Config{SweepInterval: time.Hour}, nil)
	t.Cleanup(m.Close)
	return m
}

func TestManagerLayersIndependent(t *testing.T) {
	m := newTestManager(t)

	key := ServerKey("alpha", "latest")
	m.Set(LayerHealth, key, "health-value")
	m.Set(LayerTrend, key, "trend-value")

	if v, ok := m.Get(LayerHealth, key); !ok || v != "health-value" {
		t.Fatalf("health layer: got %v ok=%v", v, ok)
	}
	if v, ok := m.Get(LayerTrend, key); !ok || v != "trend-value" {
		t.Fatalf("trend layer: got %v ok=%v", v, ok)
	}

	m.Invalidate(LayerHealth, key)
	if _, ok := m.Get(LayerHealth, key); ok {
		t.Fatal("health entry should be invalidated")
	}
	if _, ok := m.Get(LayerTrend, key); !ok {
		t.Fatal("trend entry must survive an invalidation in another layer")
	}
}

func TestManagerServerKey(t *testing.T) {
	if got := ServerKey("alpha"); got != "server:alpha" {
		t.Fatalf("got %q", got)
	}
	if got := ServerKey("alpha", "trends", "24"); got != "server:alpha:trends:24" {
		t.Fatalf("got %q", got)
	}
}

func TestManagerInvalidateServer(t *testing.T) {
	m := newTestManager(t)

	m.Set(LayerHealth, ServerKey("alpha", "latest"), 1)
	m.Set(LayerCommand, ServerKey("alpha", "commands", "50"), 2)
	m.Set(LayerTrend, ServerKey("alpha", "trends", "24"), 3)
	m.Set(LayerComprehensive, ServerKey("beta", "comprehensive"), 4)

	if dropped := m.InvalidateServer("alpha"); dropped != 3 {
		t.Fatalf("dropped = %d, want 3", dropped)
	}
	if _, ok := m.Get(LayerCommand, ServerKey("alpha", "commands", "50")); ok {
		t.Fatal("alpha entries should be gone across layers")
	}
	if _, ok := m.Get(LayerComprehensive, ServerKey("beta", "comprehensive")); !ok {
		t.Fatal("beta entry should survive")
	}
}

func TestManagerHealthCheck(t *testing.T) {
	m := newTestManager(t)

	report := m.HealthCheck()
	if len(report) != len(layerNames) {
		t.Fatalf("report covers %d layers, want %d", len(report), len(layerNames))
	}
	for _, name := range layerNames {
		ok, present := report[string(name)]
		if !present {
			t.Fatalf("layer %s missing from report", name)
		}
		if !ok {
			t.Fatalf("layer %s failed health check", name)
		}
	}

	// The probe must not linger as a real entry.
	for _, name := range layerNames {
		if got := m.layers[name].Len(); got != 0 {
			t.Fatalf("layer %s holds %d entries after health check", name, got)
		}
	}
}

func TestManagerStatsOrderAndDefaults(t *testing.T) {
	m := newTestManager(t)

	stats := m.Stats()
	if len(stats) != 5 {
		t.Fatalf("got %d layers, want 5", len(stats))
	}
	want := []struct {
		name     string
		capacity int
	}{
		{"health", 256},
		{"command", 256},
		{"trend", 128},
		{"comprehensive", 256},
		{"metadata", 512},
	}
	for i, w := range want {
		if stats[i].Name != w.name {
			t.Fatalf("stats[%d].Name = %s, want %s", i, stats[i].Name, w.name)
		}
		if stats[i].Capacity != w.capacity {
			t.Fatalf("layer %s capacity = %d, want %d", w.name, stats[i].Capacity, w.capacity)
		}
	}
}

func TestManagerConfigOverrides(t *testing.T) {
	m := NewManager(Config{
		Health:        LayerConfig{TTL: 5 * time.Second, Capacity: 4},
		SweepInterval: time.Hour,
	}, nil)
	defer m.Close()

	health := m.layers[LayerHealth]
	if health.baseTTL != 5*time.Second || health.capacity != 4 {
		t.Fatalf("health layer not configured: ttl=%v cap=%d", health.baseTTL, health.capacity)
	}
	// Unconfigured layers fall back to defaults.
	if meta := m.layers[LayerMetadata]; meta.baseTTL != 300*time.Second {
		t.Fatalf("metadata ttl = %v, want 300s", meta.baseTTL)
	}
}

func TestManagerSweep(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(t)
	for _, l := range m.layers {
		l.now = clock.now
	}

	m.SetTTL(LayerHealth, "a", 1, time.Second)
	m.SetTTL(LayerTrend, "b", 2, time.Second)
	m.SetTTL(LayerMetadata, "c", 3, time.Hour)

	clock.advance(2 * time.Second)
	if dropped := m.Sweep(); dropped != 2 {
		t.Fatalf("sweep dropped %d, want 2", dropped)
	}
	if _, ok := m.Get(LayerMetadata, "c"); !ok {
		t.Fatal("long-lived entry dropped")
	}
}
