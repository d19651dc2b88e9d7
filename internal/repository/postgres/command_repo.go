// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

// CommandRepository handles command_executions persistence.
type CommandRepository struct {
	db     *DB
	logger *logger.Logger
}

// NewCommandRepository creates a new CommandRepository.
func NewCommandRepository(db *DB, log *logger.Logger) *CommandRepository {
	return &CommandRepository{
		db:     db,
		logger: log.Named("command_repo"),
	}
}

// commandColumns is the standard column list for command_executions.
const commandColumns = `id, server_id, command_type, command_text,
	user_name, success, execution_time_ms, executed_at, schema_version`

// scanCommandRow scans a single row into a CommandExecution.
func scanCommandRow(row pgx.Row) (*models.CommandExecution, error) {
	var c models.CommandExecution
	var cmdType string
	err := row.Scan(
		&c.ID, &c.ServerID, &cmdType, &c.Command,
		&c.User, &c.Success, &c.ExecutionTimeMS, &c.ExecutedAt, &c.SchemaVersion,
	)
	if err != nil {
		return nil, err
	}
	c.Type = models.CommandType(cmdType)
	return &c, nil
}

// scanCommandRows scans multiple rows.
func scanCommandRows(rows pgx.Rows) ([]*models.CommandExecution, error) {
	var result []*models.CommandExecution
	for rows.Next() {
		c, err := scanCommandRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Insert stores a single command execution.
func (r *CommandRepository) Insert(ctx context.Context, c *models.CommandExecution) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ExecutedAt.IsZero() {
		c.ExecutedAt = time.Now()
	}

	query := `INSERT INTO command_executions (
		id, server_id, command_type, command_text,
		user_name, success, execution_time_ms, executed_at, schema_version
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.ServerID, string(c.Type), c.Command,
		c.User, c.Success, c.ExecutionTimeMS, c.ExecutedAt, c.SchemaVersion,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "failed to insert command execution")
	}
	return nil
}

// GetRange returns commands in [from, to], newest first, capped at limit.
// A non-empty cmdType filters by type.
func (r *CommandRepository) GetRange(ctx context.Context, serverID string, from, to time.Time, cmdType models.CommandType, limit int) ([]*models.CommandExecution, error) {
	query := `SELECT ` + commandColumns + `
		FROM command_executions
		WHERE server_id = $1
			AND executed_at >= $2
			AND executed_at <= $3
			AND ($4 = '' OR command_type = $4)
		ORDER BY executed_at DESC
		LIMIT $5`

	rows, err := r.db.Query(ctx, query, serverID, from, to, string(cmdType), limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to query commands")
	}
	defer rows.Close()

	return scanCommandRows(rows)
}

// Search returns commands whose text or user contains term, newest first.
func (r *CommandRepository) Search(ctx context.Context, serverID, term string, limit int) ([]*models.CommandExecution, error) {
	query := `SELECT ` + commandColumns + `
		FROM command_executions
		WHERE server_id = $1
			AND (command_text ILIKE $2 OR user_name ILIKE $2)
		ORDER BY executed_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, serverID, "%"+term+"%", limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to search commands")
	}
	defer rows.Close()

	return scanCommandRows(rows)
}

// CleanupOld deletes commands older than retentionDays.
// Returns number of rows deleted.
func (r *CommandRepository) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result, err := r.db.Exec(ctx,
		`DELETE FROM command_executions WHERE executed_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to cleanup old commands")
	}

	deleted := result.RowsAffected()
	if deleted > 0 {
		r.logger.Info("cleaned up old commands", "deleted", deleted, "older_than", cutoff)
	}
	return deleted, nil
}
