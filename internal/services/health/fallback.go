// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package health

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/models"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/telemetry"
)

// fallbackCacheTTL bounds how long one synthetic snapshot may be served
// before a fresh one is generated. Keeps repeated reads during an outage
// stable instead of jittering on every request.
const fallbackCacheTTL = 10 * time.Second

// Synthetic value ranges. Deliberately plausible mid-range numbers so a
// fallback snapshot reads like a quiet, slightly loaded server rather
// than a perfect or dead one.
const (
	fallbackFPSMin, fallbackFPSMax           = 25.0, 60.0
	fallbackMemoryMin, fallbackMemoryMax     = 1200.0, 2800.0
	fallbackCPUMin, fallbackCPUMax           = 15.0, 75.0
	fallbackPlayersMax                       = 8
	fallbackResponseMin, fallbackResponseMax = 20.0, 80.0

	fallbackHealthFloor   = 60.0
	fallbackHealthCeiling = 85.0
)

// fallbackGenerator produces and caches synthetic snapshots per server.
type fallbackGenerator struct {
	mu    sync.Mutex
	cache map[string]*fallbackEntry
	now   func() time.Time
	randf func() float64
	randn func(n int) int
}

type fallbackEntry struct {
	snapshot  *models.HealthSnapshot
	expiresAt time.Time
}

func newFallbackGenerator() *fallbackGenerator {
	return &fallbackGenerator{
		cache: make(map[string]*fallbackEntry),
		now:   time.Now,
		randf: rand.Float64,
		randn: rand.Intn,
	}
}

// Snapshot returns a synthetic snapshot for the server, reusing a cached
// one while it is fresh.
func (g *fallbackGenerator) Snapshot(serverID, reason string) *models.HealthSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if e, ok := g.cache[serverID]; ok && now.Before(e.expiresAt) {
		return e.snapshot
	}

	snapshot := g.generate(serverID, reason, now)
	g.cache[serverID] = &fallbackEntry{
		snapshot:  snapshot,
		expiresAt: now.Add(fallbackCacheTTL),
	}
	telemetry.FusionFallbackTotal.Inc()
	return snapshot
}

func (g *fallbackGenerator) generate(serverID, reason string, now time.Time) *models.HealthSnapshot {
	between := func(lo, hi float64) float64 {
		return lo + g.randf()*(hi-lo)
	}

	data := map[string]float64{
		string(models.MetricTypeFPS):          between(fallbackFPSMin, fallbackFPSMax),
		string(models.MetricTypeMemoryUsage):  between(fallbackMemoryMin, fallbackMemoryMax),
		string(models.MetricTypeCPUUsage):     between(fallbackCPUMin, fallbackCPUMax),
		string(models.MetricTypePlayerCount):  float64(g.randn(fallbackPlayersMax + 1)),
		string(models.MetricTypeResponseTime): between(fallbackResponseMin, fallbackResponseMax),
	}

	score := models.ComputeHealthScore(data)
	if score < fallbackHealthFloor {
		score = fallbackHealthFloor
	}
	if score > fallbackHealthCeiling {
		score = fallbackHealthCeiling
	}

	snapshot := &models.HealthSnapshot{
		ID:               uuid.New(),
		ServerID:         serverID,
		HealthData:       data,
		HealthPercentage: score,
		CollectedAt:      now,
		SchemaVersion:    models.CurrentSchemaVersion,
	}
	snapshot.MarkSynthetic(reason)
	return snapshot
}
