// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/cache"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/query"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/services/health"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/storage/volatile"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := logger.Nop()

	// Two volatile stores stand in for the durable/volatile pair; the
	// handlers only see the coordinator.
	durable := volatile.NewStore(volatile.DefaultConfig(), log)
	vol := volatile.NewStore(volatile.DefaultConfig(), log)
	queries := query.NewManager(durable, vol, log)
	cacheMgr := cache.NewManager(cache.Config{SweepInterval: time.Hour}, log)
	coord := health.NewCoordinator(durable, vol, vol, queries, cacheMgr, nil, log)
	t.Cleanup(coord.Shutdown)

	return NewServer(DefaultConfig(), coord, "test", log)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestPostAndGetSnapshot(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/servers/alpha/snapshots",
		`{"health_data": {"fps": 55, "cpu_usage": 40}, "data_sources": ["live_sensors"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/servers/alpha/health/latest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, body %s", rec.Code, rec.Body.String())
	}

	var snapshot models.HealthSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if snapshot.ServerID != "alpha" || snapshot.HealthData["fps"] != 55 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestGetLatestUnknownServer(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/servers/ghost/health/latest", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestComprehensiveHealthSynthesizesForUnknownServer(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/servers/ghost/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var snapshot models.HealthSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if snapshot.Quality != models.QualitySynthetic {
		t.Fatalf("quality = %s, want synthetic", snapshot.Quality)
	}
}

func TestComprehensiveHealthCarriesStatus(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/servers/alpha/snapshots",
		`{"health_data": {"fps": 60, "cpu_usage": 10, "memory_usage": 800, "player_count": 3, "response_time": 15}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/servers/alpha/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Fatalf("response %s missing status label", rec.Body.String())
	}

	var snapshot models.HealthSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if snapshot.Status != "healthy" {
		t.Fatalf("status = %q (score %v), want healthy", snapshot.Status, snapshot.HealthPercentage)
	}
}

func TestPostCommandAndSearch(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/servers/alpha/commands",
		`{"command": "kick player42", "user": "admin"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/servers/alpha/commands?search=player42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}

	var commands []*models.CommandExecution
	if err := json.Unmarshal(rec.Body.Bytes(), &commands); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if len(commands) != 1 || commands[0].Type != models.CommandTypeAdmin {
		t.Fatalf("unexpected commands: %+v", commands)
	}
}

func TestPostSnapshotBadJSON(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/servers/alpha/snapshots", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetTrendsEndpoint(t *testing.T) {
	s := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/servers/alpha/snapshots",
		`{"health_data": {"fps": 50}}`)

	rec := doRequest(t, s, http.MethodGet, "/api/servers/alpha/trends?hours=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var trends models.TrendData
	if err := json.Unmarshal(rec.Body.Bytes(), &trends); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if trends.TimePeriodHours != 1 {
		t.Fatalf("hours = %d, want 1", trends.TimePeriodHours)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if body.Status != "healthy" {
		t.Fatalf("status = %s, want healthy", body.Status)
	}
	if len(body.Components) == 0 {
		t.Fatal("expected component reports")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gust_") {
		t.Fatal("expected engine collectors in the exposition")
	}
}
