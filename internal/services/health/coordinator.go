// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package health

import (
	"context"
	"strconv"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/cache"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/query"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/storage"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/telemetry"
)

// Coordinator is the service facade over the storage pair, the query
// router, the cache layers and the live sources. All reads and writes
// from the outer surfaces go through it.
type Coordinator struct {
	durable  storage.Store
	volatile storage.Store
	metrics  storage.MetricSink
	queries  *query.Manager
	cache    *cache.Manager
	sources  []LiveSource
	fallback *fallbackGenerator
	logger   *logger.Logger
}

// NewCoordinator wires the fusion coordinator. Sources are optional;
// with none registered every health read resolves from storage or
// synthetic fallback.
func NewCoordinator(durable, volatile storage.Store, metrics storage.MetricSink, queries *query.Manager, cacheMgr *cache.Manager, sources []LiveSource, log *logger.Logger) *Coordinator {
	return &Coordinator{
		durable:  durable,
		volatile: volatile,
		metrics:  metrics,
		queries:  queries,
		cache:    cacheMgr,
		sources:  byPriority(sources),
		fallback: newFallbackGenerator(),
		logger:   log.Named("health"),
	}
}

// RegisterSource adds a live source and re-sorts by priority. Not safe
// to call after reads have started.
func (c *Coordinator) RegisterSource(src LiveSource) {
	c.sources = byPriority(append(c.sources, src))
}

// StoreSnapshot validates, persists and caches one snapshot. The
// volatile write must succeed; the durable write is best effort so a
// database outage never drops live telemetry.
func (c *Coordinator) StoreSnapshot(ctx context.Context, serverID string, healthData map[string]interface{}, sources []string, ts interface{}) (*models.HealthSnapshot, error) {
	snapshot, err := models.NewHealthSnapshot(serverID, healthData, sources, ts, c.logger)
	if err != nil {
		return nil, err
	}

	if err := c.volatile.StoreSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}
	if err := c.durable.StoreSnapshot(ctx, snapshot); err != nil {
		c.logger.Error("durable snapshot write failed",
			"server_id", serverID, "error", err)
	}

	c.cache.InvalidateServer(serverID)
	return snapshot, nil
}

// StoreCommand validates, persists and caches one command execution.
func (c *Coordinator) StoreCommand(ctx context.Context, serverID string, data map[string]interface{}) (*models.CommandExecution, error) {
	cmd, err := models.NewCommandExecution(serverID, data, c.logger)
	if err != nil {
		return nil, err
	}

	if err := c.volatile.StoreCommand(ctx, cmd); err != nil {
		return nil, err
	}
	if err := c.durable.StoreCommand(ctx, cmd); err != nil {
		c.logger.Error("durable command write failed",
			"server_id", serverID, "error", err)
	}

	c.cache.InvalidateServer(serverID)
	return cmd, nil
}

// StoreMetric records one scalar metric in the volatile sink.
func (c *Coordinator) StoreMetric(ctx context.Context, serverID, metricType string, value float64, metadata map[string]interface{}, ts interface{}) (*models.HealthMetric, error) {
	metric, err := models.NewHealthMetric(serverID, metricType, value, metadata, ts, c.logger)
	if err != nil {
		return nil, err
	}
	if err := c.metrics.StoreMetric(ctx, metric); err != nil {
		return nil, err
	}
	return metric, nil
}

// GetComprehensiveHealth resolves the fused health view for a server:
// live sources by priority, then the freshest stored snapshot for any
// still-missing metrics, then synthetic fallback when nothing answered.
// Results are cached read-through.
func (c *Coordinator) GetComprehensiveHealth(ctx context.Context, serverID string) (*models.HealthSnapshot, error) {
	if serverID == "" {
		return nil, errors.New(errors.CodeMissingField, "server_id is required")
	}

	key := cache.ServerKey(serverID, "comprehensive")
	if v, ok := c.cache.Get(cache.LayerComprehensive, key); ok {
		telemetry.CacheHitsTotal.WithLabelValues(string(cache.LayerComprehensive)).Inc()
		return v.(*models.HealthSnapshot), nil
	}
	telemetry.CacheMissesTotal.WithLabelValues(string(cache.LayerComprehensive)).Inc()

	snapshot := c.fuse(ctx, serverID)
	if snapshot.Quality == models.QualitySynthetic {
		// Synthetic data goes stale the moment a real source recovers,
		// so it only gets the floor TTL.
		c.cache.SetTTL(cache.LayerComprehensive, key, snapshot, fallbackCacheTTL)
	} else {
		c.cache.Set(cache.LayerComprehensive, key, snapshot)
	}
	for _, source := range snapshot.Sources {
		telemetry.FusionSourceUsedTotal.WithLabelValues(source).Inc()
	}
	return snapshot, nil
}

// fuse merges live readings, stored data and defaults into one snapshot.
func (c *Coordinator) fuse(ctx context.Context, serverID string) *models.HealthSnapshot {
	fused := make(map[string]interface{})
	var contributed []string

	// Live sources first, highest priority first. A later (lower
	// priority) source only fills metrics nothing above it reported.
	for _, source := range c.sources {
		data, err := source.Fetch(ctx, serverID)
		if err != nil {
			c.logger.Warn("live source failed",
				"source", source.Name(), "server_id", serverID, "error", err)
			continue
		}
		added := false
		for key, value := range data {
			if _, taken := fused[key]; !taken {
				fused[key] = value
				added = true
			}
		}
		if added {
			contributed = append(contributed, source.Name())
		}
	}

	// Stored telemetry backfills whatever the live feeds missed. Live
	// sources may report extra keys (uptime and the like), so the gate
	// is a missing core metric, not the map size.
	missingCore := false
	for _, key := range models.CoreMetricKeys {
		if _, ok := fused[key]; !ok {
			missingCore = true
			break
		}
	}
	if missingCore {
		stored, _, err := c.queries.LatestSnapshot(ctx, serverID)
		if err == nil && stored != nil {
			added := false
			for key, value := range stored.HealthData {
				if _, taken := fused[key]; !taken {
					fused[key] = value
					added = true
				}
			}
			if added {
				contributed = append(contributed, models.SourceStorage)
			}
		} else if err != nil && !errors.IsNoData(err) {
			c.logger.Warn("stored snapshot lookup failed",
				"server_id", serverID, "error", err)
		}
	}

	if len(contributed) == 0 {
		c.logger.Warn("all health sources exhausted, serving synthetic data",
			"server_id", serverID)
		return c.fallback.Snapshot(serverID, "all sources unavailable")
	}

	snapshot, err := models.NewHealthSnapshot(serverID, fused, contributed, time.Now(), c.logger)
	if err != nil {
		// Only an empty server id can fail here and that was checked.
		return c.fallback.Snapshot(serverID, "snapshot construction failed")
	}
	return snapshot
}

// GetTrends returns chart-ready trend data for the window, cached
// read-through on the trend layer.
func (c *Coordinator) GetTrends(ctx context.Context, serverID string, hours int) (*models.TrendData, error) {
	if serverID == "" {
		return nil, errors.New(errors.CodeMissingField, "server_id is required")
	}
	if hours <= 0 {
		hours = 24
	}

	key := cache.ServerKey(serverID, "trends", strconv.Itoa(hours))
	if v, ok := c.cache.Get(cache.LayerTrend, key); ok {
		telemetry.CacheHitsTotal.WithLabelValues(string(cache.LayerTrend)).Inc()
		return v.(*models.TrendData), nil
	}
	telemetry.CacheMissesTotal.WithLabelValues(string(cache.LayerTrend)).Inc()

	buckets, _, err := c.queries.TrendBuckets(ctx, serverID, hours)
	if err != nil && !errors.IsNoData(err) {
		return nil, err
	}

	trends := models.NewTrendData(serverID, hours, buckets)
	c.cache.Set(cache.LayerTrend, key, trends)
	return trends, nil
}

// CommandHistoryOptions narrows a command history read.
type CommandHistoryOptions struct {
	From   time.Time
	To     time.Time
	Type   models.CommandType
	Search string
	Limit  int
}

// GetCommandHistory returns merged command history, cached read-through
// on the command layer.
func (c *Coordinator) GetCommandHistory(ctx context.Context, serverID string, opts CommandHistoryOptions) ([]*models.CommandExecution, error) {
	if serverID == "" {
		return nil, errors.New(errors.CodeMissingField, "server_id is required")
	}
	if opts.To.IsZero() {
		opts.To = time.Now()
	}
	if opts.From.IsZero() {
		opts.From = opts.To.Add(-24 * time.Hour)
	}

	key := cache.ServerKey(serverID, "commands",
		opts.From.Format(time.RFC3339), opts.To.Format(time.RFC3339),
		string(opts.Type), opts.Search, strconv.Itoa(opts.Limit))
	if v, ok := c.cache.Get(cache.LayerCommand, key); ok {
		telemetry.CacheHitsTotal.WithLabelValues(string(cache.LayerCommand)).Inc()
		return v.([]*models.CommandExecution), nil
	}
	telemetry.CacheMissesTotal.WithLabelValues(string(cache.LayerCommand)).Inc()

	var (
		commands []*models.CommandExecution
		err      error
	)
	if opts.Search != "" {
		commands, _, err = c.queries.SearchCommands(ctx, serverID, opts.Search, opts.Limit)
	} else {
		commands, _, err = c.queries.Commands(ctx, serverID, opts.From, opts.To, opts.Type, opts.Limit)
	}
	if err != nil {
		return nil, err
	}

	c.cache.Set(cache.LayerCommand, key, commands)
	return commands, nil
}

// GetLatestSnapshot returns the freshest stored snapshot without fusion,
// cached read-through on the health layer.
func (c *Coordinator) GetLatestSnapshot(ctx context.Context, serverID string) (*models.HealthSnapshot, error) {
	if serverID == "" {
		return nil, errors.New(errors.CodeMissingField, "server_id is required")
	}

	key := cache.ServerKey(serverID, "latest")
	if v, ok := c.cache.Get(cache.LayerHealth, key); ok {
		telemetry.CacheHitsTotal.WithLabelValues(string(cache.LayerHealth)).Inc()
		return v.(*models.HealthSnapshot), nil
	}
	telemetry.CacheMissesTotal.WithLabelValues(string(cache.LayerHealth)).Inc()

	snapshot, _, err := c.queries.LatestSnapshot(ctx, serverID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(cache.LayerHealth, key, snapshot)
	return snapshot, nil
}

// GetRecentMetrics returns the newest scalar metrics for a server.
func (c *Coordinator) GetRecentMetrics(ctx context.Context, serverID string, limit int) ([]*models.HealthMetric, error) {
	if serverID == "" {
		return nil, errors.New(errors.CodeMissingField, "server_id is required")
	}
	return c.metrics.RecentMetrics(ctx, serverID, limit)
}

// ComponentHealth reports per-component reachability for the health
// endpoint.
func (c *Coordinator) ComponentHealth(ctx context.Context) map[string]bool {
	report := make(map[string]bool)
	for store, err := range c.queries.HealthCheck(ctx) {
		report["store:"+store] = err == nil
	}
	for layer, ok := range c.cache.HealthCheck() {
		report["cache:"+layer] = ok
	}
	// Sources are registration-only here; a probe fetch against a real
	// game server is too heavy for a health endpoint.
	for _, src := range c.sources {
		report["source:"+src.Name()] = true
	}
	return report
}

// Shutdown releases the coordinator's background resources.
func (c *Coordinator) Shutdown() {
	c.cache.Close()
}
