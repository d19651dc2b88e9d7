// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package models

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

// DataQuality is a derived confidence label for a snapshot, based on
// source trust, freshness, and metric completeness.
type DataQuality string

const (
	QualityExcellent DataQuality = "excellent"
	QualityGood      DataQuality = "good"
	QualityFair      DataQuality = "fair"
	QualityPoor      DataQuality = "poor"
	QualitySynthetic DataQuality = "synthetic"
)

// SourceLiveSensors is the producer name of the real-time sensor feed,
// the highest-trust telemetry source.
const SourceLiveSensors = "live_sensors"

// Known producer names for fused records.
const (
	SourcePlayerLogs = "player_logs"
	SourceStorage    = "storage"
	SourceFallback   = "fallback"
)

// HealthSnapshot is one full health observation of a server at an instant.
type HealthSnapshot struct {
	ID               uuid.UUID          `json:"snapshot_id" db:"id"`
	ServerID         string             `json:"server_id" db:"server_id"`
	HealthData       map[string]float64 `json:"health_data" db:"health_data"`
	Defaulted        []string           `json:"defaulted_metrics,omitempty" db:"-"`
	HealthPercentage float64            `json:"health_percentage" db:"health_percentage"`
	Status           string             `json:"status" db:"-"`
	Quality          DataQuality        `json:"data_quality" db:"data_quality"`
	Sources          []string           `json:"data_sources" db:"data_sources"`
	FallbackReason   string             `json:"fallback_reason,omitempty" db:"fallback_reason"`
	CollectedAt      time.Time          `json:"timestamp" db:"collected_at"`
	SchemaVersion    int                `json:"schema_version" db:"schema_version"`
}

// NewHealthSnapshot builds a snapshot from untrusted health data. Values
// for known metric keys are clamped, the five core metrics are filled with
// class defaults when missing, health_percentage is computed when not
// supplied, and data_quality is derived. Only an empty server ID fails.
func NewHealthSnapshot(serverID string, healthData map[string]interface{}, sources []string, ts interface{}, log *logger.Logger) (*HealthSnapshot, error) {
	if log == nil {
		log = logger.Nop()
	}
	if serverID == "" {
		return nil, errEmptyServerID
	}

	s := &HealthSnapshot{
		ID:            uuid.New(),
		ServerID:      serverID,
		HealthData:    make(map[string]float64, len(healthData)),
		Sources:       append([]string(nil), sources...),
		CollectedAt:   CoerceTimestamp(ts, log),
		SchemaVersion: CurrentSchemaVersion,
	}

	for key, raw := range healthData {
		v, ok := numeric(raw)
		if !ok {
			continue
		}
		if t, known := ParseMetricType(key); known && t != MetricTypeCustom {
			clamped, wasClamped := ClampMetricValue(t, v)
			if wasClamped {
				log.Warn("snapshot metric out of range, clamped",
					"server_id", serverID, "metric", key, "raw_value", v, "clamped_value", clamped)
			}
			v = clamped
		}
		s.HealthData[key] = v
	}

	s.Normalize()

	if hp, ok := s.HealthData[string(MetricTypeHealthPercentage)]; ok {
		s.HealthPercentage = hp
	} else {
		s.HealthPercentage = ComputeHealthScore(s.HealthData)
	}
	s.Status = HealthStatus(s.HealthPercentage)

	s.Quality = s.deriveQuality(time.Now())
	return s, nil
}

// Normalize fills missing core metrics with their class defaults and
// records which metrics were defaulted.
func (s *HealthSnapshot) Normalize() {
	for _, key := range CoreMetricKeys {
		if _, ok := s.HealthData[key]; ok {
			continue
		}
		s.HealthData[key] = MetricDefault(MetricType(key))
		s.Defaulted = append(s.Defaulted, key)
	}
	sort.Strings(s.Defaulted)
}

// CompleteMetrics returns how many of the five core metrics were actually
// reported rather than defaulted.
func (s *HealthSnapshot) CompleteMetrics() int {
	return len(CoreMetricKeys) - len(s.Defaulted)
}

// deriveQuality computes the quality label from source trust, freshness,
// and completeness at the given reference time.
func (s *HealthSnapshot) deriveQuality(now time.Time) DataQuality {
	if s.FallbackReason != "" {
		return QualitySynthetic
	}
	score := QualityScore(s.HasSource(SourceLiveSensors), now.Sub(s.CollectedAt), s.CompleteMetrics())
	return QualityLabel(score)
}

// HasSource reports whether the named producer contributed to this snapshot.
func (s *HealthSnapshot) HasSource(name string) bool {
	for _, src := range s.Sources {
		if src == name {
			return true
		}
	}
	return false
}

// MarkSynthetic flags the snapshot as fabricated fallback data.
func (s *HealthSnapshot) MarkSynthetic(reason string) {
	s.FallbackReason = reason
	s.Quality = QualitySynthetic
	s.Sources = []string{SourceFallback}
	s.Status = HealthStatus(s.HealthPercentage)
}

// QualityScore computes the 0-100 confidence score for a record:
// +50 when sourced from the real-time feed, up to +30 for recency
// (<5/<15/<60 minutes), up to +20 for metric completeness.
func QualityScore(fromLiveFeed bool, age time.Duration, completeMetrics int) int {
	score := 0
	if fromLiveFeed {
		score += 50
	}
	switch {
	case age < 5*time.Minute:
		score += 30
	case age < 15*time.Minute:
		score += 20
	case age < time.Hour:
		score += 10
	}
	if completeMetrics > len(CoreMetricKeys) {
		completeMetrics = len(CoreMetricKeys)
	}
	if completeMetrics > 0 {
		score += completeMetrics * 20 / len(CoreMetricKeys)
	}
	return score
}

// QualityLabel maps a confidence score to its label.
func QualityLabel(score int) DataQuality {
	switch {
	case score >= 85:
		return QualityExcellent
	case score >= 65:
		return QualityGood
	case score >= 40:
		return QualityFair
	default:
		return QualityPoor
	}
}

// ToFlat converts the snapshot to a flat key-value representation.
func (s *HealthSnapshot) ToFlat() map[string]interface{} {
	health := make(map[string]interface{}, len(s.HealthData))
	for k, v := range s.HealthData {
		health[k] = v
	}
	flat := map[string]interface{}{
		"snapshot_id":       s.ID.String(),
		"server_id":         s.ServerID,
		"health_data":       health,
		"health_percentage": s.HealthPercentage,
		"status":            s.Status,
		"data_quality":      string(s.Quality),
		"data_sources":      append([]string(nil), s.Sources...),
		"timestamp":         s.CollectedAt.UTC().Format(time.RFC3339Nano),
		"schema_version":    s.SchemaVersion,
	}
	if s.FallbackReason != "" {
		flat["fallback_reason"] = s.FallbackReason
	}
	return flat
}

// SnapshotFromFlat rebuilds a snapshot from its flat representation.
func SnapshotFromFlat(flat map[string]interface{}, log *logger.Logger) (*HealthSnapshot, error) {
	s, err := NewHealthSnapshot(
		flatString(flat, "server_id"),
		flatMap(flat, "health_data"),
		flatStrings(flat, "data_sources"),
		flat["timestamp"],
		log,
	)
	if err != nil {
		return nil, err
	}
	if id, parseErr := uuid.Parse(flatString(flat, "snapshot_id")); parseErr == nil {
		s.ID = id
	}
	if q := flatString(flat, "data_quality"); q != "" {
		s.Quality = DataQuality(q)
	}
	if reason := flatString(flat, "fallback_reason"); reason != "" {
		s.FallbackReason = reason
		s.Quality = QualitySynthetic
	}
	if sv := int(flatFloat(flat, "schema_version")); sv > 0 {
		s.SchemaVersion = sv
	}
	return s, nil
}

// legacyKeyRenames maps schema version 1 metric keys to their current names.
var legacyKeyRenames = map[string]string{
	"Memory":       string(MetricTypeMemoryUsage),
	"memory":       string(MetricTypeMemoryUsage),
	"Players":      string(MetricTypePlayerCount),
	"players":      string(MetricTypePlayerCount),
	"FPS":          string(MetricTypeFPS),
	"Fps":          string(MetricTypeFPS),
	"CPU":          string(MetricTypeCPUUsage),
	"cpu":          string(MetricTypeCPUUsage),
	"Ping":         string(MetricTypeResponseTime),
	"ResponseTime": string(MetricTypeResponseTime),
}

// SnapshotFromLegacy migrates a record written before schema versioning.
// Old metric key names are renamed, and the quality and sources fields
// introduced in version 2 are backfilled. No data is dropped: unknown
// keys carry over unchanged.
func SnapshotFromLegacy(flat map[string]interface{}, log *logger.Logger) (*HealthSnapshot, error) {
	if log == nil {
		log = logger.Nop()
	}
	if v := int(flatFloat(flat, "schema_version")); v >= CurrentSchemaVersion {
		return SnapshotFromFlat(flat, log)
	}

	health := flatMap(flat, "health_data")
	if health == nil {
		// Version 1 records kept metrics at the top level.
		health = make(map[string]interface{})
		for k, v := range flat {
			if _, ok := numeric(v); ok {
				health[k] = v
			}
		}
	}
	renamed := make(map[string]interface{}, len(health))
	for k, v := range health {
		if newKey, ok := legacyKeyRenames[k]; ok {
			k = newKey
		}
		renamed[k] = v
	}

	sources := flatStrings(flat, "data_sources")
	if len(sources) == 0 {
		sources = []string{SourceStorage}
	}

	s, err := NewHealthSnapshot(flatString(flat, "server_id"), renamed, sources, flat["timestamp"], log)
	if err != nil {
		return nil, err
	}
	if id, parseErr := uuid.Parse(flatString(flat, "snapshot_id")); parseErr == nil {
		s.ID = id
	}
	return s, nil
}

// numeric converts the value types JSON decoding produces to float64.
func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}

// flatStrings pulls a string slice from a flat map, tolerating []interface{}
// from JSON decoding.
func flatStrings(flat map[string]interface{}, key string) []string {
	switch v := flat[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
