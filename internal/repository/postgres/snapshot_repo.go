// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

// SnapshotRepository handles health_snapshots persistence.
type SnapshotRepository struct {
	db     *DB
	logger *logger.Logger
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *DB, log *logger.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: log.Named("snapshot_repo"),
	}
}

// snapshotColumns is the standard column list for health_snapshots.
const snapshotColumns = `id, server_id, health_data, health_percentage,
	data_quality, data_sources, fallback_reason, collected_at, schema_version`

// scanSnapshotRow scans a single row into a HealthSnapshot.
func scanSnapshotRow(row pgx.Row) (*models.HealthSnapshot, error) {
	var s models.HealthSnapshot
	var quality string
	err := row.Scan(
		&s.ID, &s.ServerID, &s.HealthData, &s.HealthPercentage,
		&quality, &s.Sources, &s.FallbackReason, &s.CollectedAt, &s.SchemaVersion,
	)
	if err != nil {
		return nil, err
	}
	s.Quality = models.DataQuality(quality)
	s.Status = models.HealthStatus(s.HealthPercentage)
	return &s, nil
}

// scanSnapshotRows scans multiple rows.
func scanSnapshotRows(rows pgx.Rows) ([]*models.HealthSnapshot, error) {
	var result []*models.HealthSnapshot
	for rows.Next() {
		s, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Insert stores a single health snapshot.
func (r *SnapshotRepository) Insert(ctx context.Context, s *models.HealthSnapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CollectedAt.IsZero() {
		s.CollectedAt = time.Now()
	}

	query := `INSERT INTO health_snapshots (
		id, server_id, health_data, health_percentage,
		data_quality, data_sources, fallback_reason, collected_at, schema_version
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := r.db.Exec(ctx, query,
		s.ID, s.ServerID, s.HealthData, s.HealthPercentage,
		string(s.Quality), s.Sources, s.FallbackReason, s.CollectedAt, s.SchemaVersion,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "failed to insert health snapshot")
	}
	return nil
}

// GetLatest returns the most recent snapshot for a server.
func (r *SnapshotRepository) GetLatest(ctx context.Context, serverID string) (*models.HealthSnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM health_snapshots
		WHERE server_id = $1
		ORDER BY collected_at DESC
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, serverID)
	s, err := scanSnapshotRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NoData(serverID)
		}
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to get latest snapshot")
	}
	return s, nil
}

// GetRange returns snapshots in [from, to], newest first, capped at limit.
func (r *SnapshotRepository) GetRange(ctx context.Context, serverID string, from, to time.Time, limit int) ([]*models.HealthSnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM health_snapshots
		WHERE server_id = $1
			AND collected_at >= $2
			AND collected_at <= $3
		ORDER BY collected_at DESC
		LIMIT $4`

	rows, err := r.db.Query(ctx, query, serverID, from, to, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to query snapshots")
	}
	defer rows.Close()

	return scanSnapshotRows(rows)
}

// GetTrendBuckets returns aggregated trend buckets for the window,
// ascending by bucket time. Aggregation runs server side: one row per
// date_trunc bucket with avg, min and max for each core metric.
func (r *SnapshotRepository) GetTrendBuckets(ctx context.Context, serverID string, hours int) ([]*models.TrendBucket, error) {
	bucketing := models.BucketingForWindow(hours)

	query := fmt.Sprintf(`
		SELECT
			date_trunc('%s', collected_at) AS bucket_time,
			COUNT(*) AS sample_count,
			AVG((health_data->>'fps')::float8) AS fps_avg,
			MIN((health_data->>'fps')::float8) AS fps_min,
			MAX((health_data->>'fps')::float8) AS fps_max,
			AVG((health_data->>'memory_usage')::float8) AS memory_avg,
			MIN((health_data->>'memory_usage')::float8) AS memory_min,
			MAX((health_data->>'memory_usage')::float8) AS memory_max,
			AVG((health_data->>'cpu_usage')::float8) AS cpu_avg,
			MIN((health_data->>'cpu_usage')::float8) AS cpu_min,
			MAX((health_data->>'cpu_usage')::float8) AS cpu_max,
			AVG((health_data->>'player_count')::float8) AS players_avg,
			MIN((health_data->>'player_count')::float8) AS players_min,
			MAX((health_data->>'player_count')::float8) AS players_max,
			AVG((health_data->>'response_time')::float8) AS response_avg,
			MIN((health_data->>'response_time')::float8) AS response_min,
			MAX((health_data->>'response_time')::float8) AS response_max
		FROM health_snapshots
		WHERE server_id = $1
			AND collected_at >= $2
		GROUP BY date_trunc('%s', collected_at)
		ORDER BY bucket_time ASC
	`, bucketing.Truncate, bucketing.Truncate)

	from := time.Now().Add(-time.Duration(hours) * time.Hour)
	rows, err := r.db.Query(ctx, query, serverID, from)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to query trend buckets")
	}
	defer rows.Close()

	var buckets []*models.TrendBucket
	for rows.Next() {
		var bucketTime time.Time
		var count int
		agg := make([]*float64, 15)
		dest := []interface{}{&bucketTime, &count}
		for i := range agg {
			dest = append(dest, &agg[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to scan trend bucket")
		}

		b := &models.TrendBucket{
			Label:      bucketTime.Format(bucketing.LabelFormat),
			BucketTime: bucketTime,
			Avg:        make(map[string]float64, len(models.CoreMetricKeys)),
			Min:        make(map[string]float64, len(models.CoreMetricKeys)),
			Max:        make(map[string]float64, len(models.CoreMetricKeys)),
			Count:      count,
		}
		for i, key := range models.CoreMetricKeys {
			avg, lo, hi := agg[i*3], agg[i*3+1], agg[i*3+2]
			if avg == nil {
				continue
			}
			b.Avg[key] = *avg
			if lo != nil {
				b.Min[key] = *lo
			}
			if hi != nil {
				b.Max[key] = *hi
			}
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to read trend buckets")
	}
	return buckets, nil
}

// CleanupOld deletes snapshots older than retentionDays.
// Returns number of rows deleted.
func (r *SnapshotRepository) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result, err := r.db.Exec(ctx,
		`DELETE FROM health_snapshots WHERE collected_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to cleanup old snapshots")
	}

	deleted := result.RowsAffected()
	if deleted > 0 {
		r.logger.Info("cleaned up old snapshots", "deleted", deleted, "older_than", cutoff)
	}
	return deleted, nil
}

// CountByServer returns total snapshot count for a server.
func (r *SnapshotRepository) CountByServer(ctx context.Context, serverID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM health_snapshots WHERE server_id = $1`, serverID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to count snapshots")
	}
	return count, nil
}
