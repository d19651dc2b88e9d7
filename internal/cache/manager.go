// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/telemetry"
)

// LayerName identifies one of the independent cache layers.
type LayerName string

const (
	LayerHealth        LayerName = "health"
	LayerCommand       LayerName = "command"
	LayerTrend         LayerName = "trend"
	LayerComprehensive LayerName = "comprehensive"
	LayerMetadata      LayerName = "metadata"
)

// layerNames in a fixed order for deterministic health reports.
var layerNames = []LayerName{
	LayerHealth, LayerCommand, LayerTrend, LayerComprehensive, LayerMetadata,
}

// LayerConfig sets one layer's base TTL and capacity.
type LayerConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
}

// Config holds per-layer settings and the sweep interval.
type Config struct {
	Health        LayerConfig   `yaml:"health"`
	Command       LayerConfig   `yaml:"command"`
	Trend         LayerConfig   `yaml:"trend"`
	Comprehensive LayerConfig   `yaml:"comprehensive"`
	Metadata      LayerConfig   `yaml:"metadata"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DefaultConfig returns the documented per-layer defaults.
func DefaultConfig() Config {
	return Config{
		Health:        LayerConfig{TTL: 30 * time.Second, Capacity: 256},
		Command:       LayerConfig{TTL: 60 * time.Second, Capacity: 256},
		Trend:         LayerConfig{TTL: 120 * time.Second, Capacity: 128},
		Comprehensive: LayerConfig{TTL: 30 * time.Second, Capacity: 256},
		Metadata:      LayerConfig{TTL: 300 * time.Second, Capacity: 512},
		SweepInterval: time.Minute,
	}
}

// Manager owns the five independent cache layers. It is constructed once
// by the coordinator; callers never hold references into layer internals.
type Manager struct {
	layers map[LayerName]*Layer
	log    *logger.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager builds the layers from config, filling zero values with
// defaults.
func NewManager(cfg Config, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	def := DefaultConfig()
	pick := func(c, d LayerConfig) LayerConfig {
		if c.TTL <= 0 {
			c.TTL = d.TTL
		}
		if c.Capacity <= 0 {
			c.Capacity = d.Capacity
		}
		return c
	}
	cfgs := map[LayerName]LayerConfig{
		LayerHealth:        pick(cfg.Health, def.Health),
		LayerCommand:       pick(cfg.Command, def.Command),
		LayerTrend:         pick(cfg.Trend, def.Trend),
		LayerComprehensive: pick(cfg.Comprehensive, def.Comprehensive),
		LayerMetadata:      pick(cfg.Metadata, def.Metadata),
	}

	m := &Manager{
		layers: make(map[LayerName]*Layer, len(cfgs)),
		log:    log.Named("cache"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for name, c := range cfgs {
		m.layers[name] = NewLayer(string(name), c.TTL, c.Capacity)
	}

	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = def.SweepInterval
	}
	go m.sweeper(interval)
	return m
}

// ServerKey builds a cache key scoped to one server. All keys derived
// from a server share this prefix so a write can invalidate them together.
func ServerKey(serverID string, parts ...string) string {
	key := "server:" + serverID
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Get returns the cached value in the named layer.
func (m *Manager) Get(layer LayerName, key string) (interface{}, bool) {
	l, ok := m.layers[layer]
	if !ok {
		return nil, false
	}
	return l.Get(key)
}

// Set stores a value with the layer's adaptive TTL.
func (m *Manager) Set(layer LayerName, key string, value interface{}) {
	if l, ok := m.layers[layer]; ok {
		l.Set(key, value)
	}
}

// SetTTL stores a value with an explicit TTL.
func (m *Manager) SetTTL(layer LayerName, key string, value interface{}, ttl time.Duration) {
	if l, ok := m.layers[layer]; ok {
		l.SetTTL(key, value, ttl)
	}
}

// Invalidate removes one key from one layer.
func (m *Manager) Invalidate(layer LayerName, key string) bool {
	if l, ok := m.layers[layer]; ok {
		return l.Invalidate(key)
	}
	return false
}

// InvalidatePrefix removes matching keys from every layer and returns the
// total dropped.
func (m *Manager) InvalidatePrefix(prefix string) int {
	dropped := 0
	for _, l := range m.layers {
		dropped += l.InvalidatePrefix(prefix)
	}
	return dropped
}

// InvalidateServer removes every cached entry derived from one server,
// used whenever that server's stores are written to.
func (m *Manager) InvalidateServer(serverID string) int {
	dropped := m.InvalidatePrefix(ServerKey(serverID))
	if dropped > 0 {
		m.log.Debug("invalidated server cache entries", "server_id", serverID, "dropped", dropped)
	}
	return dropped
}

// HealthCheck round-trips a throwaway key through every layer and reports
// per-layer pass/fail. Real entries are never touched.
func (m *Manager) HealthCheck() map[string]bool {
	probe := fmt.Sprintf("__healthcheck__:%s", uuid.NewString())
	result := make(map[string]bool, len(layerNames))
	for _, name := range layerNames {
		l := m.layers[name]
		l.SetTTL(probe, "ok", time.Second)
		v, ok := l.Get(probe)
		l.Invalidate(probe)
		result[string(name)] = ok && v == "ok"
	}
	return result
}

// Stats returns per-layer counters in layer order.
func (m *Manager) Stats() []LayerStats {
	stats := make([]LayerStats, 0, len(layerNames))
	for _, name := range layerNames {
		stats = append(stats, m.layers[name].Stats())
	}
	return stats
}

// Sweep purges expired entries from every layer.
func (m *Manager) Sweep() int {
	dropped := 0
	for name, l := range m.layers {
		dropped += l.Sweep()
		telemetry.CacheEntries.WithLabelValues(string(name)).Set(float64(l.Len()))
	}
	return dropped
}

// sweeper runs periodic expiry sweeps until Close.
func (m *Manager) sweeper(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if dropped := m.Sweep(); dropped > 0 {
				m.log.Debug("cache sweep completed", "dropped", dropped)
			}
		case <-m.stop:
			return
		}
	}
}

// Close stops the background sweeper.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}
