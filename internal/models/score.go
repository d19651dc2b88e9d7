// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package models

// Class defaults used when a metric is absent from a record. Absence must
// not crater the health score, so missing metrics score as a nominal
// mid-load server rather than zero.
const (
	DefaultFPS         = 60.0
	DefaultMemoryMB    = 1600.0
	DefaultCPUPercent  = 25.0
	DefaultPlayerCount = 0.0
	DefaultResponseMS  = 35.0
)

// Health score weights. Responsiveness (fps + response time) carries half
// the weight: for a live-session service it matters more than headroom.
const (
	weightFPS      = 0.30
	weightMemory   = 0.25
	weightCPU      = 0.25
	weightResponse = 0.20
)

// MetricDefault returns the class default for a metric type.
func MetricDefault(t MetricType) float64 {
	switch t {
	case MetricTypeFPS:
		return DefaultFPS
	case MetricTypeMemoryUsage:
		return DefaultMemoryMB
	case MetricTypeCPUUsage:
		return DefaultCPUPercent
	case MetricTypePlayerCount:
		return DefaultPlayerCount
	case MetricTypeResponseTime:
		return DefaultResponseMS
	default:
		return 0
	}
}

// metricOrDefault reads a metric from health data, substituting the class
// default when the key is absent.
func metricOrDefault(data map[string]float64, t MetricType) float64 {
	if v, ok := data[string(t)]; ok {
		return v
	}
	return MetricDefault(t)
}

// ComputeHealthScore computes the normalized 0-100 health score from a
// health data map. Component scores:
//
//	fps_score      = min(100, fps/60*100)
//	memory_score   = 100 when memory <= 1000MB, else max(0, 100-(mb-1000)/20)
//	cpu_score      = max(0, 100-cpu)
//	response_score = 100 when response <= 20ms, else max(0, 100-(ms-20)/2)
//
// weighted 0.30/0.25/0.25/0.20 and clamped to [0,100].
func ComputeHealthScore(data map[string]float64) float64 {
	fps := metricOrDefault(data, MetricTypeFPS)
	memoryMB := metricOrDefault(data, MetricTypeMemoryUsage)
	cpu := metricOrDefault(data, MetricTypeCPUUsage)
	responseMS := metricOrDefault(data, MetricTypeResponseTime)

	fpsScore := fps / 60 * 100
	if fpsScore > 100 {
		fpsScore = 100
	}

	memoryScore := 100.0
	if memoryMB > 1000 {
		memoryScore = 100 - (memoryMB-1000)/20
		if memoryScore < 0 {
			memoryScore = 0
		}
	}

	cpuScore := 100 - cpu
	if cpuScore < 0 {
		cpuScore = 0
	}

	responseScore := 100.0
	if responseMS > 20 {
		responseScore = 100 - (responseMS-20)/2
		if responseScore < 0 {
			responseScore = 0
		}
	}

	score := weightFPS*fpsScore + weightMemory*memoryScore + weightCPU*cpuScore + weightResponse*responseScore
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// HealthStatus maps a health score to an operator-facing status label.
func HealthStatus(score float64) string {
	switch {
	case score >= 75:
		return "healthy"
	case score >= 50:
		return "degraded"
	default:
		return "critical"
	}
}
