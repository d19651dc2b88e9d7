// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package health fuses telemetry from live sources, the store pair and
// synthetic fallback into a single per-server health view.
package health

import (
	"context"
	"sort"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/telemetry"
)

// maxSourceTimeout bounds how long any single live source may block a
// health read, whatever the source asks for.
const maxSourceTimeout = 15 * time.Second

// defaultSourceTimeout applies when a source declares none.
const defaultSourceTimeout = 5 * time.Second

// LiveSource produces real-time metric readings for a server. Sources
// are ranked: when two sources report the same metric, the higher
// priority value wins.
type LiveSource interface {
	// Name identifies the source in snapshot provenance.
	Name() string

	// Priority ranks the source. Higher wins conflicts.
	Priority() int

	// Fetch returns metric readings for the server, keyed by metric name.
	Fetch(ctx context.Context, serverID string) (map[string]float64, error)
}

// FetchFunc is the signature of a live metric probe.
type FetchFunc func(ctx context.Context, serverID string) (map[string]float64, error)

// funcSource adapts a plain fetch function into a LiveSource.
type funcSource struct {
	name     string
	priority int
	timeout  time.Duration
	fetch    FetchFunc
}

// NewSource wraps a fetch function as a named, ranked live source. The
// timeout is clamped to the source ceiling.
func NewSource(name string, priority int, timeout time.Duration, fetch FetchFunc) LiveSource {
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	if timeout > maxSourceTimeout {
		timeout = maxSourceTimeout
	}
	return &funcSource{
		name:     name,
		priority: priority,
		timeout:  timeout,
		fetch:    fetch,
	}
}

func (s *funcSource) Name() string  { return s.name }
func (s *funcSource) Priority() int { return s.priority }

func (s *funcSource) Fetch(ctx context.Context, serverID string) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	timer := telemetry.NewTimer()
	data, err := s.fetch(ctx, serverID)
	timer.ObserveDurationVec(telemetry.SourceFetchDuration, s.name)

	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, errors.CodeSourceTimeout, "source fetch timed out").
				WithDetail("source", s.name)
		}
		return nil, errors.SourceFailed(s.name, err)
	}
	return data, nil
}

// byPriority orders sources highest priority first, name as tiebreak so
// fusion order is deterministic.
func byPriority(sources []LiveSource) []LiveSource {
	ordered := make([]LiveSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority() != ordered[j].Priority() {
			return ordered[i].Priority() > ordered[j].Priority()
		}
		return ordered[i].Name() < ordered[j].Name()
	})
	return ordered
}
