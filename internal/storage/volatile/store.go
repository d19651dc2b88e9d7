// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package volatile implements the lossy in-process telemetry store:
// per-server bounded ring buffers for snapshots, commands, and metrics.
// Writes are O(1); expired entries and global overflow are reclaimed by
// an opportunistic sweep that runs at most once per interval.
package volatile

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

// noData wraps the typed empty-result error for this store.
func noData(serverID string) error {
	return errors.NoData(serverID)
}

// StoreName identifies the volatile store in logs and query results.
const StoreName = "volatile"

// Config bounds the volatile store.
type Config struct {
	SnapshotsPerServer int           `yaml:"snapshots_per_server"`
	CommandsPerServer  int           `yaml:"commands_per_server"`
	MetricsPerServer   int           `yaml:"metrics_per_server"`
	GlobalSnapshotCap  int           `yaml:"global_snapshot_cap"`
	GlobalCommandCap   int           `yaml:"global_command_cap"`
	GlobalMetricCap    int           `yaml:"global_metric_cap"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	SnapshotRetention  time.Duration `yaml:"snapshot_retention"`
	CommandRetention   time.Duration `yaml:"command_retention"`
	MetricRetention    time.Duration `yaml:"metric_retention"`
}

// DefaultConfig returns the documented default caps.
func DefaultConfig() Config {
	return Config{
		SnapshotsPerServer: 100,
		CommandsPerServer:  200,
		MetricsPerServer:   50,
		GlobalSnapshotCap:  500,
		GlobalCommandCap:   1000,
		GlobalMetricCap:    200,
		SweepInterval:      5 * time.Minute,
		SnapshotRetention:  24 * time.Hour,
		CommandRetention:   7 * 24 * time.Hour,
		MetricRetention:    6 * time.Hour,
	}
}

// serverBuffers holds one server's ring buffers.
type serverBuffers struct {
	snapshots *ring[*models.HealthSnapshot]
	commands  *ring[*models.CommandExecution]
	metrics   *ring[*models.HealthMetric]
	lastWrite time.Time
}

// Store is the in-process bounded telemetry store. Safe for concurrent
// readers and writers; all locks are short-held and never span I/O.
type Store struct {
	cfg Config
	log *logger.Logger

	mu        sync.RWMutex
	servers   map[string]*serverBuffers
	lastSweep time.Time
}

// NewStore creates a volatile store with the given bounds.
func NewStore(cfg Config, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	def := DefaultConfig()
	if cfg.SnapshotsPerServer <= 0 {
		cfg.SnapshotsPerServer = def.SnapshotsPerServer
	}
	if cfg.CommandsPerServer <= 0 {
		cfg.CommandsPerServer = def.CommandsPerServer
	}
	if cfg.MetricsPerServer <= 0 {
		cfg.MetricsPerServer = def.MetricsPerServer
	}
	if cfg.GlobalSnapshotCap <= 0 {
		cfg.GlobalSnapshotCap = def.GlobalSnapshotCap
	}
	if cfg.GlobalCommandCap <= 0 {
		cfg.GlobalCommandCap = def.GlobalCommandCap
	}
	if cfg.GlobalMetricCap <= 0 {
		cfg.GlobalMetricCap = def.GlobalMetricCap
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.SnapshotRetention <= 0 {
		cfg.SnapshotRetention = def.SnapshotRetention
	}
	if cfg.CommandRetention <= 0 {
		cfg.CommandRetention = def.CommandRetention
	}
	if cfg.MetricRetention <= 0 {
		cfg.MetricRetention = def.MetricRetention
	}
	return &Store{
		cfg:       cfg,
		log:       log.Named("volatile-store"),
		servers:   make(map[string]*serverBuffers),
		lastSweep: time.Now(),
	}
}

// Name implements storage.Store.
func (s *Store) Name() string { return StoreName }

// Ping implements storage.Store. The volatile store is always reachable.
func (s *Store) Ping(_ context.Context) error { return nil }

// buffers returns the ring buffers for a server, creating them on first use.
// Caller must hold the write lock.
func (s *Store) buffers(serverID string) *serverBuffers {
	b, ok := s.servers[serverID]
	if !ok {
		b = &serverBuffers{
			snapshots: newRing[*models.HealthSnapshot](s.cfg.SnapshotsPerServer),
			commands:  newRing[*models.CommandExecution](s.cfg.CommandsPerServer),
			metrics:   newRing[*models.HealthMetric](s.cfg.MetricsPerServer),
		}
		s.servers[serverID] = b
	}
	return b
}

// StoreSnapshot appends a snapshot. Full buffers silently drop the oldest
// entry; this store is lossy by design.
func (s *Store) StoreSnapshot(_ context.Context, snap *models.HealthSnapshot) error {
	s.mu.Lock()
	b := s.buffers(snap.ServerID)
	b.snapshots.push(snap)
	b.lastWrite = time.Now()
	s.mu.Unlock()

	s.maybeSweep()
	return nil
}

// StoreCommand appends a command execution.
func (s *Store) StoreCommand(_ context.Context, cmd *models.CommandExecution) error {
	s.mu.Lock()
	b := s.buffers(cmd.ServerID)
	b.commands.push(cmd)
	b.lastWrite = time.Now()
	s.mu.Unlock()

	s.maybeSweep()
	return nil
}

// StoreMetric appends a scalar metric.
func (s *Store) StoreMetric(_ context.Context, m *models.HealthMetric) error {
	s.mu.Lock()
	b := s.buffers(m.ServerID)
	b.metrics.push(m)
	b.lastWrite = time.Now()
	s.mu.Unlock()

	s.maybeSweep()
	return nil
}

// LatestSnapshot returns the most recent snapshot for a server.
func (s *Store) LatestSnapshot(_ context.Context, serverID string) (*models.HealthSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.servers[serverID]
	if !ok {
		return nil, noData(serverID)
	}
	snap, ok := b.snapshots.newest()
	if !ok {
		return nil, noData(serverID)
	}
	return snap, nil
}

// Snapshots returns snapshots in [from, to], newest first.
func (s *Store) Snapshots(_ context.Context, serverID string, from, to time.Time, limit int) ([]*models.HealthSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.servers[serverID]
	if !ok {
		return nil, nil
	}
	all := b.snapshots.items()
	out := make([]*models.HealthSnapshot, 0, len(all))
	// Ring order is oldest to newest; walk backwards for newest first.
	for i := len(all) - 1; i >= 0; i-- {
		snap := all[i]
		if snap.CollectedAt.Before(from) || snap.CollectedAt.After(to) {
			continue
		}
		out = append(out, snap)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Commands returns command executions in [from, to], newest first,
// optionally filtered by type.
func (s *Store) Commands(_ context.Context, serverID string, from, to time.Time, cmdType models.CommandType, limit int) ([]*models.CommandExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.servers[serverID]
	if !ok {
		return nil, nil
	}
	all := b.commands.items()
	out := make([]*models.CommandExecution, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		cmd := all[i]
		if cmd.ExecutedAt.Before(from) || cmd.ExecutedAt.After(to) {
			continue
		}
		if cmdType != "" && cmd.Type != cmdType {
			continue
		}
		out = append(out, cmd)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SearchCommands returns commands whose text or user contains term,
// newest first. Matching is case-insensitive.
func (s *Store) SearchCommands(_ context.Context, serverID, term string, limit int) ([]*models.CommandExecution, error) {
	term = strings.ToLower(term)

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.servers[serverID]
	if !ok {
		return nil, nil
	}
	all := b.commands.items()
	out := make([]*models.CommandExecution, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		cmd := all[i]
		if !strings.Contains(strings.ToLower(cmd.Command), term) &&
			!strings.Contains(strings.ToLower(cmd.User), term) {
			continue
		}
		out = append(out, cmd)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// RecentMetrics returns the newest metrics for a server, newest first.
func (s *Store) RecentMetrics(_ context.Context, serverID string, limit int) ([]*models.HealthMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.servers[serverID]
	if !ok {
		return nil, nil
	}
	all := b.metrics.items()
	out := make([]*models.HealthMetric, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// TrendBuckets aggregates buffered snapshots into trend buckets, matching
// the durable store's server-side aggregation semantics.
func (s *Store) TrendBuckets(ctx context.Context, serverID string, hours int) ([]*models.TrendBucket, error) {
	now := time.Now()
	snaps, err := s.Snapshots(ctx, serverID, now.Add(-time.Duration(hours)*time.Hour), now, 0)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}

	bucketing := models.BucketingForWindow(hours)
	type agg struct {
		bucket *models.TrendBucket
		sums   map[string]float64
	}
	byTime := make(map[time.Time]*agg)

	for _, snap := range snaps {
		bt := snap.CollectedAt.Truncate(bucketing.Interval)
		a, ok := byTime[bt]
		if !ok {
			a = &agg{
				bucket: &models.TrendBucket{
					Label:      bt.Format(bucketing.LabelFormat),
					BucketTime: bt,
					Avg:        make(map[string]float64),
					Min:        make(map[string]float64),
					Max:        make(map[string]float64),
				},
				sums: make(map[string]float64),
			}
			byTime[bt] = a
		}
		a.bucket.Count++
		for _, key := range models.CoreMetricKeys {
			v := snap.HealthData[key]
			a.sums[key] += v
			if cur, ok := a.bucket.Min[key]; !ok || v < cur {
				a.bucket.Min[key] = v
			}
			if cur, ok := a.bucket.Max[key]; !ok || v > cur {
				a.bucket.Max[key] = v
			}
		}
	}

	buckets := make([]*models.TrendBucket, 0, len(byTime))
	for _, a := range byTime {
		for key, sum := range a.sums {
			a.bucket.Avg[key] = sum / float64(a.bucket.Count)
		}
		buckets = append(buckets, a.bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].BucketTime.Before(buckets[j].BucketTime)
	})
	return buckets, nil
}

// maybeSweep runs a sweep when the sweep interval elapsed since the last
// one. Keeps the per-write cost O(1) in the common case.
func (s *Store) maybeSweep() {
	s.mu.RLock()
	due := time.Since(s.lastSweep) >= s.cfg.SweepInterval
	s.mu.RUnlock()
	if due {
		s.Sweep()
	}
}

// Sweep drops entries past their retention horizon and enforces the
// global caps, trimming least-recently-written servers first. Also
// invoked periodically by the scheduler.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSweep = time.Now()

	now := time.Now()
	var droppedExpired int

	for serverID, b := range s.servers {
		kept := make([]*models.HealthSnapshot, 0, b.snapshots.len())
		for _, snap := range b.snapshots.items() {
			if now.Sub(snap.CollectedAt) <= s.cfg.SnapshotRetention {
				kept = append(kept, snap)
			}
		}
		droppedExpired += b.snapshots.replace(kept)

		keptCmds := make([]*models.CommandExecution, 0, b.commands.len())
		for _, cmd := range b.commands.items() {
			if now.Sub(cmd.ExecutedAt) <= s.cfg.CommandRetention {
				keptCmds = append(keptCmds, cmd)
			}
		}
		droppedExpired += b.commands.replace(keptCmds)

		keptMetrics := make([]*models.HealthMetric, 0, b.metrics.len())
		for _, m := range b.metrics.items() {
			if now.Sub(m.CollectedAt) <= s.cfg.MetricRetention {
				keptMetrics = append(keptMetrics, m)
			}
		}
		droppedExpired += b.metrics.replace(keptMetrics)

		if b.snapshots.len() == 0 && b.commands.len() == 0 && b.metrics.len() == 0 {
			delete(s.servers, serverID)
		}
	}

	droppedOverflow := s.enforceGlobalCaps()

	if droppedExpired > 0 || droppedOverflow > 0 {
		s.log.Debug("volatile sweep completed",
			"dropped_expired", droppedExpired,
			"dropped_overflow", droppedOverflow,
			"servers", len(s.servers),
		)
	}
}

// enforceGlobalCaps trims buffers oldest-written-server first until the
// process-wide caps hold. Caller must hold the write lock.
func (s *Store) enforceGlobalCaps() int {
	order := make([]string, 0, len(s.servers))
	for id := range s.servers {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		return s.servers[order[i]].lastWrite.Before(s.servers[order[j]].lastWrite)
	})

	dropped := 0
	dropped += trimToCap(order, s.cfg.GlobalSnapshotCap, func(id string) trimSet { return s.servers[id].snapshots })
	dropped += trimToCap(order, s.cfg.GlobalCommandCap, func(id string) trimSet { return s.servers[id].commands })
	dropped += trimToCap(order, s.cfg.GlobalMetricCap, func(id string) trimSet { return s.servers[id].metrics })
	return dropped
}

// trimSet is the subset of ring behavior the global-cap trim needs.
type trimSet interface {
	len() int
	dropOldest(int) int
}

// trimToCap drops oldest entries across servers in the given order until
// the total is at or under cap.
func trimToCap(order []string, limit int, pick func(string) trimSet) int {
	total := 0
	for _, id := range order {
		total += pick(id).len()
	}
	dropped := 0
	for _, id := range order {
		if total <= limit {
			break
		}
		r := pick(id)
		n := total - limit
		if n > r.len() {
			n = r.len()
		}
		dropped += r.dropOldest(n)
		total -= n
	}
	return dropped
}

// Stats reports buffer occupancy for health reporting.
func (s *Store) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snaps, cmds, metrics int
	for _, b := range s.servers {
		snaps += b.snapshots.len()
		cmds += b.commands.len()
		metrics += b.metrics.len()
	}
	return map[string]int{
		"servers":   len(s.servers),
		"snapshots": snaps,
		"commands":  cmds,
		"metrics":   metrics,
	}
}
