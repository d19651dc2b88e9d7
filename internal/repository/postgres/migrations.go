// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration represents a database migration
type Migration struct {
	Version   string
	Name      string
	AppliedAt *time.Time
}

// migrationLockID is the advisory lock ID for migration safety.
// Derived from 'gust' in hex: 0x67757374 = 1735750516
const migrationLockID = 1735750516

// Migrate runs all pending migrations with advisory lock protection.
// Safe for concurrent startup of multiple instances.
func (db *DB) Migrate(ctx context.Context) error {
	var locked bool
	if err := db.pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockID).Scan(&locked); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance is running migrations, skipping")
	}
	defer func() {
		_, _ = db.pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	if err := db.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	available, err := db.getAvailableMigrations()
	if err != nil {
		return fmt.Errorf("failed to get available migrations: %w", err)
	}

	for _, m := range available {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
		}
	}

	return nil
}

// MigrateDown rolls back the last N migrations
func (db *DB) MigrateDown(ctx context.Context, steps int) error {
	if steps < 1 {
		return fmt.Errorf("invalid steps: %d", steps)
	}

	applied, err := db.getAppliedMigrationsOrdered(ctx)
	if err != nil {
		return err
	}

	count := 0
	for i := len(applied) - 1; i >= 0 && count < steps; i-- {
		if err := db.rollbackMigration(ctx, applied[i]); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", applied[i].Version, err)
		}
		count++
	}

	return nil
}

// MigrationStatus prints the status of all migrations
func (db *DB) MigrationStatus(ctx context.Context) error {
	if err := db.createMigrationsTable(ctx); err != nil {
		return err
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	available, err := db.getAvailableMigrations()
	if err != nil {
		return err
	}

	fmt.Println("Migration Status:")
	fmt.Println("=================")

	for _, m := range available {
		status := "Pending"
		if appliedAt, ok := applied[m.Version]; ok {
			status = fmt.Sprintf("Applied at %s", appliedAt.Format(time.RFC3339))
		}
		fmt.Printf("%-20s %s\n", m.Version, status)
	}

	return nil
}

// createMigrationsTable creates the schema_migrations table if it doesn't exist
func (db *DB) createMigrationsTable(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// getAppliedMigrations returns a map of applied migration versions
func (db *DB) getAppliedMigrations(ctx context.Context) (map[string]time.Time, error) {
	rows, err := db.pool.Query(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var version string
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, err
		}
		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// getAppliedMigrationsOrdered returns applied migrations in order
func (db *DB) getAppliedMigrationsOrdered(ctx context.Context) ([]Migration, error) {
	rows, err := db.pool.Query(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var migrations []Migration
	for rows.Next() {
		var m Migration
		var appliedAt time.Time
		if err := rows.Scan(&m.Version, &appliedAt); err != nil {
			return nil, err
		}
		m.AppliedAt = &appliedAt
		migrations = append(migrations, m)
	}

	return migrations, rows.Err()
}

// getAvailableMigrations reads migration files from embedded FS
func (db *DB) getAvailableMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		version := strings.TrimSuffix(name, ".up.sql")
		if seen[version] {
			continue
		}
		seen[version] = true

		parts := strings.SplitN(version, "_", 2)
		migrationName := version
		if len(parts) > 1 {
			migrationName = parts[1]
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    migrationName,
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// applyMigration applies a single migration
func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	filename := fmt.Sprintf("migrations/%s.up.sql", m.Version)
	content, err := migrationsFS.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)",
		m.Version,
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	db.logger.Info("applied migration", "version", m.Version, "name", m.Name)
	return nil
}

// rollbackMigration applies a single down migration
func (db *DB) rollbackMigration(ctx context.Context, m Migration) error {
	filename := fmt.Sprintf("migrations/%s.down.sql", m.Version)
	content, err := migrationsFS.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read rollback file: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute rollback: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM schema_migrations WHERE version = $1",
		m.Version,
	); err != nil {
		return fmt.Errorf("failed to unrecord migration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	db.logger.Info("rolled back migration", "version", m.Version, "name", m.Name)
	return nil
}
