// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package storage defines the interface both telemetry stores implement.
// The durable store (Postgres) and the volatile store (in-process ring
// buffers) are two implementations of the same contract, composed by the
// query layer; callers never branch on which store they talk to.
package storage

import (
	"context"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
)

// Store is the common contract of the durable and volatile telemetry
// stores. Implementations return errors wrapped with CodeStoreUnavailable
// for connectivity failures and CodeNoData for empty results, and must
// never panic past their boundary.
type Store interface {
	// Name identifies the store in logs and query results.
	Name() string

	// StoreSnapshot persists one health snapshot.
	StoreSnapshot(ctx context.Context, s *models.HealthSnapshot) error

	// StoreCommand persists one command execution.
	StoreCommand(ctx context.Context, c *models.CommandExecution) error

	// LatestSnapshot returns the most recent snapshot for a server.
	LatestSnapshot(ctx context.Context, serverID string) (*models.HealthSnapshot, error)

	// Snapshots returns snapshots in [from, to], newest first, capped at limit.
	Snapshots(ctx context.Context, serverID string, from, to time.Time, limit int) ([]*models.HealthSnapshot, error)

	// Commands returns command executions in [from, to], newest first,
	// capped at limit. A non-empty cmdType filters by type.
	Commands(ctx context.Context, serverID string, from, to time.Time, cmdType models.CommandType, limit int) ([]*models.CommandExecution, error)

	// SearchCommands returns commands whose text or user contains term,
	// newest first, capped at limit.
	SearchCommands(ctx context.Context, serverID, term string, limit int) ([]*models.CommandExecution, error)

	// TrendBuckets returns server-side aggregated trend buckets for the
	// window, ascending by bucket time.
	TrendBuckets(ctx context.Context, serverID string, hours int) ([]*models.TrendBucket, error)

	// Ping reports store reachability for health checks.
	Ping(ctx context.Context) error
}

// MetricSink receives individual scalar metrics. Metrics are short-lived
// operational data and are held only by the volatile store.
type MetricSink interface {
	StoreMetric(ctx context.Context, m *models.HealthMetric) error
	RecentMetrics(ctx context.Context, serverID string, limit int) ([]*models.HealthMetric, error)
}
