// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package query routes reads across the durable and volatile stores.
// Each operation has a primary store chosen for its access pattern and
// falls back to the secondary when the primary is unreachable or empty.
package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/storage"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/telemetry"
)

const (
	// maxResults caps any single query regardless of the caller's limit.
	maxResults = 1000

	// defaultLimit applies when the caller passes no limit.
	defaultLimit = 100

	// slowQueryThreshold marks queries worth a warning log.
	slowQueryThreshold = time.Second
)

// Manager composes the two stores behind one read surface.
type Manager struct {
	durable  storage.Store
	volatile storage.Store
	logger   *logger.Logger
}

// NewManager creates a query manager over the store pair.
func NewManager(durable, volatile storage.Store, log *logger.Logger) *Manager {
	return &Manager{
		durable:  durable,
		volatile: volatile,
		logger:   log.Named("query"),
	}
}

// clampLimit normalizes a caller-supplied limit.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxResults {
		return maxResults
	}
	return limit
}

// observe records query latency and flags slow queries.
func (m *Manager) observe(operation, source string, start time.Time) {
	elapsed := time.Since(start)
	telemetry.QueryDuration.WithLabelValues(operation, source).Observe(elapsed.Seconds())
	if elapsed > slowQueryThreshold {
		telemetry.SlowQueriesTotal.WithLabelValues(operation).Inc()
		m.logger.Warn("slow query",
			"operation", operation, "source", source, "duration", elapsed)
	}
}

// shouldFallBack reports whether an error from the primary store warrants
// trying the secondary. Unreachable stores and empty results both do;
// validation failures never do.
func shouldFallBack(err error) bool {
	return errors.IsUnavailable(err) || errors.IsNoData(err) || errors.IsTimeout(err)
}

// LatestSnapshot returns the freshest snapshot for a server. The volatile
// store is the primary here: the most recent write always lands there
// first, and reads avoid a round trip to the database.
func (m *Manager) LatestSnapshot(ctx context.Context, serverID string) (*models.HealthSnapshot, string, error) {
	start := time.Now()

	snapshot, err := m.volatile.LatestSnapshot(ctx, serverID)
	if err == nil {
		m.observe("latest_snapshot", m.volatile.Name(), start)
		return snapshot, m.volatile.Name(), nil
	}
	if !shouldFallBack(err) {
		return nil, "", err
	}

	telemetry.QueryFallbacksTotal.WithLabelValues("latest_snapshot").Inc()
	snapshot, err = m.durable.LatestSnapshot(ctx, serverID)
	m.observe("latest_snapshot", m.durable.Name(), start)
	if err != nil {
		return nil, "", err
	}
	return snapshot, m.durable.Name(), nil
}

// Snapshots returns historical snapshots. The durable store is primary
// for history: it holds the full retention window, while the volatile
// store only covers the recent past.
func (m *Manager) Snapshots(ctx context.Context, serverID string, from, to time.Time, limit int) ([]*models.HealthSnapshot, string, error) {
	start := time.Now()
	limit = clampLimit(limit)

	snapshots, err := m.durable.Snapshots(ctx, serverID, from, to, limit)
	if err == nil && len(snapshots) > 0 {
		m.observe("snapshots", m.durable.Name(), start)
		return snapshots, m.durable.Name(), nil
	}
	if err != nil && !shouldFallBack(err) {
		return nil, "", err
	}

	telemetry.QueryFallbacksTotal.WithLabelValues("snapshots").Inc()
	snapshots, verr := m.volatile.Snapshots(ctx, serverID, from, to, limit)
	m.observe("snapshots", m.volatile.Name(), start)
	if verr != nil {
		if err != nil {
			return nil, "", err
		}
		return nil, "", verr
	}
	return snapshots, m.volatile.Name(), nil
}

// TrendBuckets returns aggregated trend buckets. The durable store is
// primary: its window is long enough for every supported range and the
// aggregation runs server side.
func (m *Manager) TrendBuckets(ctx context.Context, serverID string, hours int) ([]*models.TrendBucket, string, error) {
	start := time.Now()

	buckets, err := m.durable.TrendBuckets(ctx, serverID, hours)
	if err == nil && len(buckets) > 0 {
		m.observe("trend_buckets", m.durable.Name(), start)
		return buckets, m.durable.Name(), nil
	}
	if err != nil && !shouldFallBack(err) {
		return nil, "", err
	}

	telemetry.QueryFallbacksTotal.WithLabelValues("trend_buckets").Inc()
	buckets, verr := m.volatile.TrendBuckets(ctx, serverID, hours)
	m.observe("trend_buckets", m.volatile.Name(), start)
	if verr != nil {
		if err != nil {
			return nil, "", err
		}
		return nil, "", verr
	}
	return buckets, m.volatile.Name(), nil
}

// Commands returns command history merged across both stores. Recent
// executions may exist only in the volatile store while older ones live
// only in the durable one, so the result is the deduplicated union.
func (m *Manager) Commands(ctx context.Context, serverID string, from, to time.Time, cmdType models.CommandType, limit int) ([]*models.CommandExecution, string, error) {
	start := time.Now()
	limit = clampLimit(limit)

	durable, derr := m.durable.Commands(ctx, serverID, from, to, cmdType, limit)
	volatile, verr := m.volatile.Commands(ctx, serverID, from, to, cmdType, limit)

	merged, source, err := m.mergeCommands(durable, derr, volatile, verr, limit)
	m.observe("commands", source, start)
	return merged, source, err
}

// SearchCommands searches command history across both stores.
func (m *Manager) SearchCommands(ctx context.Context, serverID, term string, limit int) ([]*models.CommandExecution, string, error) {
	start := time.Now()
	limit = clampLimit(limit)

	durable, derr := m.durable.SearchCommands(ctx, serverID, term, limit)
	volatile, verr := m.volatile.SearchCommands(ctx, serverID, term, limit)

	merged, source, err := m.mergeCommands(durable, derr, volatile, verr, limit)
	m.observe("search_commands", source, start)
	return merged, source, err
}

// mergeCommands combines per-store results into one newest-first list.
// Duplicates keep the durable store's copy. Either store may have failed;
// the merge only errors when both did.
func (m *Manager) mergeCommands(durable []*models.CommandExecution, derr error, volatile []*models.CommandExecution, verr error, limit int) ([]*models.CommandExecution, string, error) {
	if derr != nil && verr != nil {
		if !shouldFallBack(derr) {
			return nil, "", derr
		}
		return nil, "", verr
	}

	source := m.mergeSource(derr, verr)
	if derr != nil {
		telemetry.QueryFallbacksTotal.WithLabelValues("commands").Inc()
	}

	seen := make(map[uuid.UUID]bool, len(durable))
	merged := make([]*models.CommandExecution, 0, len(durable)+len(volatile))
	for _, c := range durable {
		seen[c.ID] = true
		merged = append(merged, c)
	}
	for _, c := range volatile {
		if !seen[c.ID] {
			merged = append(merged, c)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ExecutedAt.After(merged[j].ExecutedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, source, nil
}

// mergeSource names the stores that contributed to a merged result.
func (m *Manager) mergeSource(derr, verr error) string {
	var parts []string
	if derr == nil {
		parts = append(parts, m.durable.Name())
	}
	if verr == nil {
		parts = append(parts, m.volatile.Name())
	}
	return strings.Join(parts, "+")
}

// HealthCheck pings both stores and reports per-store reachability.
func (m *Manager) HealthCheck(ctx context.Context) map[string]error {
	return map[string]error{
		m.durable.Name():  m.durable.Ping(ctx),
		m.volatile.Name(): m.volatile.Ping(ctx),
	}
}
