// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package telemetry exposes the engine's Prometheus metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	SnapshotsStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_snapshots_stored_total",
			Help: "Total number of health snapshots written by store",
		},
		[]string{"store"},
	)

	CommandsStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_commands_stored_total",
			Help: "Total number of command executions written by store",
		},
		[]string{"store"},
	)

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_store_errors_total",
			Help: "Total number of store operation failures by store and operation",
		},
		[]string{"store", "operation"},
	)

	RetentionDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_retention_deleted_total",
			Help: "Total number of records removed by retention sweeps",
		},
		[]string{"store", "kind"},
	)

	// Query metrics
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gust_query_duration_seconds",
			Help:    "Query duration in seconds by operation and serving source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "source"},
	)

	SlowQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_slow_queries_total",
			Help: "Total number of queries exceeding the slow threshold",
		},
		[]string{"operation"},
	)

	QueryFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_query_fallbacks_total",
			Help: "Total number of queries served by the secondary store",
		},
		[]string{"operation"},
	)

	// Cache metrics
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_cache_hits_total",
			Help: "Total number of cache hits by layer",
		},
		[]string{"layer"},
	)

	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_cache_misses_total",
			Help: "Total number of cache misses by layer",
		},
		[]string{"layer"},
	)

	CacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gust_cache_entries",
			Help: "Current number of live cache entries by layer",
		},
		[]string{"layer"},
	)

	// Fusion metrics
	FusionSourceUsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_fusion_source_used_total",
			Help: "Total number of health reads served per contributing source",
		},
		[]string{"source"},
	)

	FusionFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gust_fusion_fallback_total",
			Help: "Total number of synthetic fallback snapshots generated",
		},
	)

	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gust_source_fetch_duration_seconds",
			Help:    "Live source fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Ingest metrics
	IngestMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_ingest_messages_total",
			Help: "Total number of ingested telemetry messages by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gust_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gust_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(SnapshotsStoredTotal)
	prometheus.MustRegister(CommandsStoredTotal)
	prometheus.MustRegister(StoreErrorsTotal)
	prometheus.MustRegister(RetentionDeletedTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(SlowQueriesTotal)
	prometheus.MustRegister(QueryFallbacksTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(FusionSourceUsedTotal)
	prometheus.MustRegister(FusionFallbackTotal)
	prometheus.MustRegister(SourceFetchDuration)
	prometheus.MustRegister(IngestMessagesTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
