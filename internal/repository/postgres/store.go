// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package postgres

import (
	"context"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/telemetry"
)

// StoreName identifies the durable store in logs and query results.
const StoreName = "durable"

// Retention bounds for the periodic cleanup sweep.
const (
	SnapshotRetentionDays = 7
	CommandRetentionDays  = 30
)

// Store adapts the snapshot and command repositories to the common
// telemetry store contract. It is the durable half of the storage pair.
type Store struct {
	db        *DB
	snapshots *SnapshotRepository
	commands  *CommandRepository
	logger    *logger.Logger
}

// NewStore creates the durable store over an open database.
func NewStore(db *DB, log *logger.Logger) *Store {
	return &Store{
		db:        db,
		snapshots: NewSnapshotRepository(db, log),
		commands:  NewCommandRepository(db, log),
		logger:    log.Named("durable_store"),
	}
}

// Name identifies the store.
func (s *Store) Name() string {
	return StoreName
}

// StoreSnapshot persists one health snapshot.
func (s *Store) StoreSnapshot(ctx context.Context, snapshot *models.HealthSnapshot) error {
	if snapshot.ServerID == "" {
		return errors.New(errors.CodeMissingField, "server_id is required")
	}
	if err := s.snapshots.Insert(ctx, snapshot); err != nil {
		telemetry.StoreErrorsTotal.WithLabelValues(StoreName, "store_snapshot").Inc()
		return err
	}
	telemetry.SnapshotsStoredTotal.WithLabelValues(StoreName).Inc()
	return nil
}

// StoreCommand persists one command execution.
func (s *Store) StoreCommand(ctx context.Context, cmd *models.CommandExecution) error {
	if cmd.ServerID == "" {
		return errors.New(errors.CodeMissingField, "server_id is required")
	}
	if err := s.commands.Insert(ctx, cmd); err != nil {
		telemetry.StoreErrorsTotal.WithLabelValues(StoreName, "store_command").Inc()
		return err
	}
	telemetry.CommandsStoredTotal.WithLabelValues(StoreName).Inc()
	return nil
}

// LatestSnapshot returns the most recent snapshot for a server.
func (s *Store) LatestSnapshot(ctx context.Context, serverID string) (*models.HealthSnapshot, error) {
	snapshot, err := s.snapshots.GetLatest(ctx, serverID)
	if err != nil && errors.IsUnavailable(err) {
		telemetry.StoreErrorsTotal.WithLabelValues(StoreName, "latest_snapshot").Inc()
	}
	return snapshot, err
}

// Snapshots returns snapshots in [from, to], newest first, capped at limit.
func (s *Store) Snapshots(ctx context.Context, serverID string, from, to time.Time, limit int) ([]*models.HealthSnapshot, error) {
	return s.snapshots.GetRange(ctx, serverID, from, to, limit)
}

// Commands returns command executions in [from, to], newest first.
func (s *Store) Commands(ctx context.Context, serverID string, from, to time.Time, cmdType models.CommandType, limit int) ([]*models.CommandExecution, error) {
	return s.commands.GetRange(ctx, serverID, from, to, cmdType, limit)
}

// SearchCommands returns commands whose text or user contains term.
func (s *Store) SearchCommands(ctx context.Context, serverID, term string, limit int) ([]*models.CommandExecution, error) {
	return s.commands.Search(ctx, serverID, term, limit)
}

// TrendBuckets returns server-side aggregated trend buckets, ascending.
func (s *Store) TrendBuckets(ctx context.Context, serverID string, hours int) ([]*models.TrendBucket, error) {
	return s.snapshots.GetTrendBuckets(ctx, serverID, hours)
}

// Ping reports store reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return errors.Unavailable(StoreName, err)
	}
	return nil
}

// RunRetention applies the retention policy to both tables and reports
// totals. Invoked by the scheduler's retention sweep.
func (s *Store) RunRetention(ctx context.Context) (int64, error) {
	snapshots, err := s.snapshots.CleanupOld(ctx, SnapshotRetentionDays)
	if err != nil {
		telemetry.StoreErrorsTotal.WithLabelValues(StoreName, "retention").Inc()
		return 0, err
	}
	telemetry.RetentionDeletedTotal.WithLabelValues(StoreName, "snapshots").Add(float64(snapshots))

	commands, err := s.commands.CleanupOld(ctx, CommandRetentionDays)
	if err != nil {
		telemetry.StoreErrorsTotal.WithLabelValues(StoreName, "retention").Inc()
		return snapshots, err
	}
	telemetry.RetentionDeletedTotal.WithLabelValues(StoreName, "commands").Add(float64(commands))

	return snapshots + commands, nil
}
