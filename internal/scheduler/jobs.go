// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package scheduler

import (
	"context"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/cache"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/repository/postgres"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/storage/volatile"
)

// Default maintenance intervals.
const (
	DefaultRetentionInterval = time.Hour
	DefaultVolatileInterval  = 5 * time.Minute
	DefaultCacheInterval     = time.Minute
)

// NewRetentionJob sweeps expired rows out of the durable store.
func NewRetentionJob(store *postgres.Store, interval time.Duration) Job {
	if interval <= 0 {
		interval = DefaultRetentionInterval
	}
	return NewJobFunc("durable_retention", interval, func(ctx context.Context) error {
		_, err := store.RunRetention(ctx)
		return err
	})
}

// NewVolatileSweepJob drops expired entries from the volatile store's
// ring buffers and re-enforces its global caps.
func NewVolatileSweepJob(store *volatile.Store, interval time.Duration) Job {
	if interval <= 0 {
		interval = DefaultVolatileInterval
	}
	return NewJobFunc("volatile_sweep", interval, func(ctx context.Context) error {
		store.Sweep()
		return nil
	})
}

// NewCacheSweepJob purges expired cache entries across all layers.
func NewCacheSweepJob(mgr *cache.Manager, interval time.Duration) Job {
	if interval <= 0 {
		interval = DefaultCacheInterval
	}
	return NewJobFunc("cache_sweep", interval, func(ctx context.Context) error {
		mgr.Sweep()
		return nil
	})
}
