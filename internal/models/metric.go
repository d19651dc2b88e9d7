// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

// MetricType represents the type of a health metric observation.
type MetricType string

const (
	MetricTypeFPS              MetricType = "fps"
	MetricTypeMemoryUsage      MetricType = "memory_usage"
	MetricTypeCPUUsage         MetricType = "cpu_usage"
	MetricTypePlayerCount      MetricType = "player_count"
	MetricTypeResponseTime     MetricType = "response_time"
	MetricTypeHealthPercentage MetricType = "health_percentage"
	MetricTypeCustom           MetricType = "custom"
)

// CoreMetricKeys are the five metrics every snapshot is normalized to carry.
var CoreMetricKeys = []string{
	string(MetricTypeFPS),
	string(MetricTypeMemoryUsage),
	string(MetricTypeCPUUsage),
	string(MetricTypePlayerCount),
	string(MetricTypeResponseTime),
}

// ParseMetricType maps a raw string to a MetricType. Unknown values
// degrade to MetricTypeCustom rather than failing.
func ParseMetricType(s string) (MetricType, bool) {
	switch MetricType(s) {
	case MetricTypeFPS, MetricTypeMemoryUsage, MetricTypeCPUUsage,
		MetricTypePlayerCount, MetricTypeResponseTime, MetricTypeHealthPercentage:
		return MetricType(s), true
	case MetricTypeCustom:
		return MetricTypeCustom, true
	default:
		return MetricTypeCustom, false
	}
}

// metricRange bounds a metric type's value domain.
type metricRange struct {
	Min    float64
	Max    float64
	HasMax bool
}

var metricRanges = map[MetricType]metricRange{
	MetricTypeFPS:              {Min: 0, Max: 1000, HasMax: true},
	MetricTypeMemoryUsage:      {Min: 0},
	MetricTypeCPUUsage:         {Min: 0, Max: 100, HasMax: true},
	MetricTypePlayerCount:      {Min: 0},
	MetricTypeResponseTime:     {Min: 0},
	MetricTypeHealthPercentage: {Min: 0, Max: 100, HasMax: true},
}

// ClampMetricValue clamps a value into the documented range for its type.
// Returns the clamped value and whether clamping occurred.
func ClampMetricValue(t MetricType, v float64) (float64, bool) {
	r, ok := metricRanges[t]
	if !ok {
		return v, false
	}
	if v < r.Min {
		return r.Min, true
	}
	if r.HasMax && v > r.Max {
		return r.Max, true
	}
	return v, false
}

// HealthMetric is a single scalar telemetry observation for one server.
type HealthMetric struct {
	ID            uuid.UUID              `json:"metric_id" db:"id"`
	ServerID      string                 `json:"server_id" db:"server_id"`
	Type          MetricType             `json:"metric_type" db:"metric_type"`
	Value         float64                `json:"value" db:"value"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CollectedAt   time.Time              `json:"timestamp" db:"collected_at"`
	SchemaVersion int                    `json:"schema_version" db:"schema_version"`
}

// NewHealthMetric builds a metric from untrusted input. Out-of-range values
// are clamped with a logged warning, unknown types degrade to custom, and
// bad timestamps coerce to now. The only hard failure is an empty server ID.
func NewHealthMetric(serverID string, metricType string, value float64, metadata map[string]interface{}, ts interface{}, log *logger.Logger) (*HealthMetric, error) {
	if log == nil {
		log = logger.Nop()
	}
	if serverID == "" {
		return nil, errEmptyServerID
	}

	t, known := ParseMetricType(metricType)
	if !known {
		log.Warn("unknown metric type, storing as custom", "metric_type", metricType, "server_id", serverID)
	}

	v, clamped := ClampMetricValue(t, value)
	if clamped {
		log.Warn("metric value out of range, clamped",
			"metric_type", t, "server_id", serverID, "raw_value", value, "clamped_value", v)
	}

	return &HealthMetric{
		ID:            uuid.New(),
		ServerID:      serverID,
		Type:          t,
		Value:         v,
		Metadata:      metadata,
		CollectedAt:   CoerceTimestamp(ts, log),
		SchemaVersion: CurrentSchemaVersion,
	}, nil
}

// ToFlat converts the metric to a flat key-value representation for
// storage and wire boundaries.
func (m *HealthMetric) ToFlat() map[string]interface{} {
	flat := map[string]interface{}{
		"metric_id":      m.ID.String(),
		"server_id":      m.ServerID,
		"metric_type":    string(m.Type),
		"value":          m.Value,
		"timestamp":      m.CollectedAt.UTC().Format(time.RFC3339Nano),
		"schema_version": m.SchemaVersion,
	}
	if len(m.Metadata) > 0 {
		flat["metadata"] = m.Metadata
	}
	return flat
}

// MetricFromFlat rebuilds a metric from its flat representation.
func MetricFromFlat(flat map[string]interface{}, log *logger.Logger) (*HealthMetric, error) {
	if log == nil {
		log = logger.Nop()
	}
	serverID := flatString(flat, "server_id")
	if serverID == "" {
		return nil, errEmptyServerID
	}

	m, err := NewHealthMetric(
		serverID,
		flatString(flat, "metric_type"),
		flatFloat(flat, "value"),
		flatMap(flat, "metadata"),
		flat["timestamp"],
		log,
	)
	if err != nil {
		return nil, err
	}
	if id, parseErr := uuid.Parse(flatString(flat, "metric_id")); parseErr == nil {
		m.ID = id
	}
	if sv := int(flatFloat(flat, "schema_version")); sv > 0 {
		m.SchemaVersion = sv
	}
	return m, nil
}
