// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package models

import (
	"math"
	"testing"
	"time"
)

func TestNewHealthSnapshot_NormalizesCoreMetrics(t *testing.T) {
	s, err := NewHealthSnapshot("srv-1", map[string]interface{}{
		"fps": 45.0,
	}, []string{SourceLiveSensors}, nil, nil)
	if err != nil {
		t.Fatalf("NewHealthSnapshot() error: %v", err)
	}

	for _, key := range CoreMetricKeys {
		if _, ok := s.HealthData[key]; !ok {
			t.Errorf("core metric %q missing after normalization", key)
		}
	}
	if s.HealthData["memory_usage"] != DefaultMemoryMB {
		t.Errorf("memory_usage = %v, want default %v", s.HealthData["memory_usage"], DefaultMemoryMB)
	}
	if s.CompleteMetrics() != 1 {
		t.Errorf("CompleteMetrics() = %d, want 1", s.CompleteMetrics())
	}
}

func TestNewHealthSnapshot_ClampsOutOfRange(t *testing.T) {
	s, err := NewHealthSnapshot("srv-1", map[string]interface{}{
		"cpu_usage": 400.0,
		"fps":       -20.0,
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewHealthSnapshot() error: %v", err)
	}
	if s.HealthData["cpu_usage"] != 100 {
		t.Errorf("cpu_usage = %v, want clamped 100", s.HealthData["cpu_usage"])
	}
	if s.HealthData["fps"] != 0 {
		t.Errorf("fps = %v, want clamped 0", s.HealthData["fps"])
	}
}

func TestNewHealthSnapshot_ScoreFullFusionScenario(t *testing.T) {
	// Sensor feed: cpu 20, fps 60; memory and response use class defaults.
	s, err := NewHealthSnapshot("srv-1", map[string]interface{}{
		"fps":          60.0,
		"cpu_usage":    20.0,
		"player_count": 5.0,
	}, []string{SourceLiveSensors, SourcePlayerLogs}, nil, nil)
	if err != nil {
		t.Fatalf("NewHealthSnapshot() error: %v", err)
	}

	// fps 100, memory 70 (1600MB default), cpu 80, response 92.5 (35ms default)
	want := 0.30*100 + 0.25*70 + 0.25*80 + 0.20*92.5
	if math.Abs(s.HealthPercentage-want) > 0.01 {
		t.Errorf("HealthPercentage = %v, want %v", s.HealthPercentage, want)
	}
	if s.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", s.Status)
	}
}

func TestNewHealthSnapshot_SuppliedHealthPercentageWins(t *testing.T) {
	s, err := NewHealthSnapshot("srv-1", map[string]interface{}{
		"health_percentage": 33.0,
		"cpu_usage":         5.0,
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewHealthSnapshot() error: %v", err)
	}
	if s.HealthPercentage != 33 {
		t.Errorf("HealthPercentage = %v, want supplied 33", s.HealthPercentage)
	}
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name     string
		live     bool
		age      time.Duration
		complete int
		want     int
	}{
		{"live fresh complete", true, time.Minute, 5, 100},
		{"live stale", true, 2 * time.Hour, 5, 70},
		{"stored recent", false, 10 * time.Minute, 5, 40},
		{"stored old sparse", false, 3 * time.Hour, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualityScore(tt.live, tt.age, tt.complete); got != tt.want {
				t.Errorf("QualityScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQualityLabel(t *testing.T) {
	if QualityLabel(100) != QualityExcellent {
		t.Error("score 100 should be excellent")
	}
	if QualityLabel(70) != QualityGood {
		t.Error("score 70 should be good")
	}
	if QualityLabel(45) != QualityFair {
		t.Error("score 45 should be fair")
	}
	if QualityLabel(10) != QualityPoor {
		t.Error("score 10 should be poor")
	}
}

func TestMarkSynthetic(t *testing.T) {
	s, err := NewHealthSnapshot("srv-1", nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewHealthSnapshot() error: %v", err)
	}
	s.MarkSynthetic("all sources unavailable")
	if s.Quality != QualitySynthetic {
		t.Errorf("Quality = %q, want synthetic", s.Quality)
	}
	if s.FallbackReason == "" {
		t.Error("FallbackReason must be set")
	}
	if !s.HasSource(SourceFallback) {
		t.Error("sources should record fallback")
	}
}

func TestSnapshot_FlatRoundTrip(t *testing.T) {
	s, err := NewHealthSnapshot("srv-1", map[string]interface{}{
		"fps":       50.0,
		"cpu_usage": 30.0,
	}, []string{SourceLiveSensors}, nil, nil)
	if err != nil {
		t.Fatalf("NewHealthSnapshot() error: %v", err)
	}

	got, err := SnapshotFromFlat(s.ToFlat(), nil)
	if err != nil {
		t.Fatalf("SnapshotFromFlat() error: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("ID = %v, want %v", got.ID, s.ID)
	}
	if got.HealthData["fps"] != 50 {
		t.Errorf("fps = %v, want 50", got.HealthData["fps"])
	}
	if !got.HasSource(SourceLiveSensors) {
		t.Error("sources lost in round trip")
	}
}

func TestSnapshotFromLegacy_MigratesV1(t *testing.T) {
	legacy := map[string]interface{}{
		"server_id": "srv-1",
		"FPS":       40.0,
		"Memory":    2200.0,
		"Players":   12.0,
		"timestamp": time.Now().Add(-time.Minute).Format(time.RFC3339),
	}

	s, err := SnapshotFromLegacy(legacy, nil)
	if err != nil {
		t.Fatalf("SnapshotFromLegacy() error: %v", err)
	}
	if s.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", s.SchemaVersion, CurrentSchemaVersion)
	}
	if s.HealthData["fps"] != 40 {
		t.Errorf("fps = %v, want migrated 40", s.HealthData["fps"])
	}
	if s.HealthData["memory_usage"] != 2200 {
		t.Errorf("memory_usage = %v, want migrated 2200", s.HealthData["memory_usage"])
	}
	if s.HealthData["player_count"] != 12 {
		t.Errorf("player_count = %v, want migrated 12", s.HealthData["player_count"])
	}
	if len(s.Sources) == 0 {
		t.Error("sources should be backfilled for legacy records")
	}
}
