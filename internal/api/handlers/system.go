// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package handlers

import (
	"net/http"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/services/health"
)

// SystemHandler serves liveness and component health.
type SystemHandler struct {
	BaseHandler
	coordinator *health.Coordinator
	version     string
}

// NewSystemHandler creates a new system handler.
func NewSystemHandler(coordinator *health.Coordinator, version string, log *logger.Logger) *SystemHandler {
	return &SystemHandler{
		BaseHandler: NewBaseHandler(log),
		coordinator: coordinator,
		version:     version,
	}
}

// healthzResponse is the health endpoint body.
type healthzResponse struct {
	Status         string          `json:"status"`
	Version        string          `json:"version"`
	Components     map[string]bool `json:"components"`
	ResponseTimeMS int64           `json:"response_time_ms"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Healthz reports per-component reachability. Degraded components turn
// the overall status but not the HTTP code: a partially working engine
// still serves reads.
func (h *SystemHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	components := h.coordinator.ComponentHealth(r.Context())

	status := "healthy"
	for _, ok := range components {
		if !ok {
			status = "degraded"
			break
		}
	}

	h.OK(w, healthzResponse{
		Status:         status,
		Version:        h.version,
		Components:     components,
		ResponseTimeMS: time.Since(start).Milliseconds(),
		Timestamp:      time.Now(),
	})
}
