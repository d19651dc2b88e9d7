// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/services/health"
)

// TelemetryHandler serves the per-server telemetry API.
type TelemetryHandler struct {
	BaseHandler
	coordinator *health.Coordinator
}

// NewTelemetryHandler creates a new telemetry handler.
func NewTelemetryHandler(coordinator *health.Coordinator, log *logger.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		BaseHandler: NewBaseHandler(log),
		coordinator: coordinator,
	}
}

// Routes registers telemetry API routes.
func (h *TelemetryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{serverID}", func(r chi.Router) {
		r.Get("/health", h.GetHealth)
		r.Get("/health/latest", h.GetLatest)
		r.Get("/trends", h.GetTrends)
		r.Get("/commands", h.GetCommands)
		r.Get("/metrics", h.GetMetrics)
		r.Post("/snapshots", h.PostSnapshot)
		r.Post("/commands", h.PostCommand)
		r.Post("/metrics", h.PostMetric)
	})

	return r
}

// GetHealth returns the fused comprehensive health view.
func (h *TelemetryHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	snapshot, err := h.coordinator.GetComprehensiveHealth(r.Context(), serverID)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, snapshot)
}

// GetLatest returns the freshest stored snapshot without fusion.
func (h *TelemetryHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	snapshot, err := h.coordinator.GetLatestSnapshot(r.Context(), serverID)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, snapshot)
}

// GetTrends returns chart-ready trend data for a time window.
func (h *TelemetryHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	hours := h.QueryInt(r, "hours", 24)

	trends, err := h.coordinator.GetTrends(r.Context(), serverID, hours)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, trends)
}

// GetCommands returns command history, optionally filtered and searched.
func (h *TelemetryHandler) GetCommands(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	opts := health.CommandHistoryOptions{
		Type:   models.CommandType(h.QueryParam(r, "type")),
		Search: h.QueryParam(r, "search"),
		Limit:  h.QueryInt(r, "limit", 0),
	}
	if raw := h.QueryParam(r, "from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			opts.From = t
		}
	}
	if raw := h.QueryParam(r, "to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			opts.To = t
		}
	}

	commands, err := h.coordinator.GetCommandHistory(r.Context(), serverID, opts)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, commands)
}

// GetMetrics returns the newest scalar metrics.
func (h *TelemetryHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")
	limit := h.QueryInt(r, "limit", 50)

	metrics, err := h.coordinator.GetRecentMetrics(r.Context(), serverID, limit)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.OK(w, metrics)
}

// snapshotInput is the POST body for a snapshot.
type snapshotInput struct {
	HealthData map[string]interface{} `json:"health_data"`
	Sources    []string               `json:"data_sources,omitempty"`
	Timestamp  string                 `json:"timestamp,omitempty"`
}

// optionalTimestamp maps an omitted timestamp field to nil so only
// genuinely malformed values trigger the coercion warning.
func optionalTimestamp(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// PostSnapshot ingests one health snapshot.
func (h *TelemetryHandler) PostSnapshot(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	var input snapshotInput
	if err := h.ParseJSON(r, &input); err != nil {
		h.HandleError(w, err)
		return
	}
	sources := input.Sources
	if len(sources) == 0 {
		sources = []string{"ingest"}
	}

	snapshot, err := h.coordinator.StoreSnapshot(r.Context(), serverID, input.HealthData, sources, optionalTimestamp(input.Timestamp))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.Created(w, snapshot)
}

// PostCommand ingests one command execution.
func (h *TelemetryHandler) PostCommand(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	var input map[string]interface{}
	if err := h.ParseJSON(r, &input); err != nil {
		h.HandleError(w, err)
		return
	}

	cmd, err := h.coordinator.StoreCommand(r.Context(), serverID, input)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.Created(w, cmd)
}

// metricInput is the POST body for a scalar metric.
type metricInput struct {
	Type      string                 `json:"metric_type"`
	Value     float64                `json:"value"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// PostMetric ingests one scalar metric.
func (h *TelemetryHandler) PostMetric(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	var input metricInput
	if err := h.ParseJSON(r, &input); err != nil {
		h.HandleError(w, err)
		return
	}

	metric, err := h.coordinator.StoreMetric(r.Context(), serverID, input.Type, input.Value, input.Metadata, optionalTimestamp(input.Timestamp))
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.Created(w, metric)
}
