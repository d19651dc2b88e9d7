// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package models

import (
	"math"
	"time"
)

// TrendDirection describes how a metric moved over a trend window.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// trendChangeThreshold is the relative change between the first and last
// third of the window below which a trend counts as stable.
const trendChangeThreshold = 0.05

// TrendBucket is one aggregated time bucket as produced by a store. The
// durable store computes these server-side; the volatile store aggregates
// in memory with the same semantics.
type TrendBucket struct {
	Label      string    `json:"label"`
	BucketTime time.Time `json:"bucket_time"`
	// Per-metric averages for the bucket, keyed by core metric name.
	Avg map[string]float64 `json:"avg"`
	Min map[string]float64 `json:"min"`
	Max map[string]float64 `json:"max"`
	// Count is how many snapshots contributed to the bucket.
	Count int `json:"count"`
}

// ChartSeries is one metric's chart data over a trend window.
type ChartSeries struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// SummaryStats summarizes one metric over a trend window.
type SummaryStats struct {
	Min       float64        `json:"min"`
	Max       float64        `json:"max"`
	Avg       float64        `json:"avg"`
	Count     int            `json:"count"`
	Direction TrendDirection `json:"trend"`
}

// TrendData is a derived, non-persisted time-windowed view over many
// snapshots for one server. It lives only for its cache TTL.
type TrendData struct {
	ServerID        string                  `json:"server_id"`
	TimePeriodHours int                     `json:"time_period_hours"`
	Labels          []string                `json:"labels"`
	Charts          map[string]*ChartSeries `json:"charts"`
	SummaryStats    map[string]SummaryStats `json:"summary_stats"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// NewTrendData assembles chart series and summary stats from aggregated
// buckets. Buckets must be in ascending time order.
func NewTrendData(serverID string, hours int, buckets []*TrendBucket) *TrendData {
	t := &TrendData{
		ServerID:        serverID,
		TimePeriodHours: hours,
		Labels:          make([]string, 0, len(buckets)),
		Charts:          make(map[string]*ChartSeries, len(CoreMetricKeys)),
		SummaryStats:    make(map[string]SummaryStats, len(CoreMetricKeys)),
		GeneratedAt:     time.Now(),
	}
	for _, key := range CoreMetricKeys {
		t.Charts[key] = &ChartSeries{
			Labels: make([]string, 0, len(buckets)),
			Data:   make([]float64, 0, len(buckets)),
		}
	}

	for _, b := range buckets {
		t.Labels = append(t.Labels, b.Label)
		for _, key := range CoreMetricKeys {
			series := t.Charts[key]
			series.Labels = append(series.Labels, b.Label)
			series.Data = append(series.Data, b.Avg[key])
		}
	}

	for _, key := range CoreMetricKeys {
		t.SummaryStats[key] = summarize(key, buckets)
	}
	return t
}

// summarize computes min/max/avg/count and the trend direction for one
// metric across all buckets.
func summarize(key string, buckets []*TrendBucket) SummaryStats {
	stats := SummaryStats{Direction: TrendStable}
	if len(buckets) == 0 {
		return stats
	}

	values := make([]float64, 0, len(buckets))
	var sum float64
	stats.Min = math.Inf(1)
	stats.Max = math.Inf(-1)
	for _, b := range buckets {
		v := b.Avg[key]
		values = append(values, v)
		sum += v
		stats.Count += b.Count

		lo, ok := b.Min[key]
		if !ok {
			lo = v
		}
		hi, ok := b.Max[key]
		if !ok {
			hi = v
		}
		if lo < stats.Min {
			stats.Min = lo
		}
		if hi > stats.Max {
			stats.Max = hi
		}
	}
	stats.Avg = sum / float64(len(values))
	stats.Direction = trendDirection(values)
	return stats
}

// trendDirection compares the mean of the first third of the window with
// the mean of the last third. Changes under the stability threshold, or
// windows too short to split, count as stable.
func trendDirection(values []float64) TrendDirection {
	if len(values) < 3 {
		return TrendStable
	}
	third := len(values) / 3
	firstMean := mean(values[:third])
	lastMean := mean(values[len(values)-third:])

	if firstMean == 0 {
		if lastMean > 0 {
			return TrendIncreasing
		}
		if lastMean < 0 {
			return TrendDecreasing
		}
		return TrendStable
	}

	change := (lastMean - firstMean) / firstMean
	switch {
	case change > trendChangeThreshold:
		return TrendIncreasing
	case change < -trendChangeThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// TrendBucketing describes the bucket granularity and label format for a
// trend window. Both stores derive bucketing from the same rules so their
// chart labels line up.
type TrendBucketing struct {
	Interval time.Duration
	// Truncate is the date_trunc argument for the durable store.
	Truncate string
	// LabelFormat is the Go time layout for bucket labels.
	LabelFormat string
}

// BucketingForWindow returns the bucketing rules for a trend window:
// minute buckets up to an hour, hour buckets up to a day, day buckets
// beyond that.
func BucketingForWindow(hours int) TrendBucketing {
	switch {
	case hours <= 1:
		return TrendBucketing{Interval: time.Minute, Truncate: "minute", LabelFormat: "15:04"}
	case hours <= 24:
		return TrendBucketing{Interval: time.Hour, Truncate: "hour", LabelFormat: "15:00"}
	default:
		return TrendBucketing{Interval: 24 * time.Hour, Truncate: "day", LabelFormat: "01/02"}
	}
}
