// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package ingest

import "testing"

func TestServerIDFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
		ok      bool
	}{
		{"gust.telemetry.alpha.snapshot", "alpha", true},
		{"gust.telemetry.srv-042.command", "srv-042", true},
		{"gust.telemetry.alpha.metric", "alpha", true},
		{"gust.telemetry.alpha", "", false},
		{"gust.telemetry.alpha.snapshot.extra", "", false},
		{"other.telemetry.alpha.snapshot", "", false},
		{"gust.telemetry..snapshot", "", false},
		{"gust.telemetry.*.snapshot", "", false},
		{"gust.telemetry.>.snapshot", "", false},
	}

	for _, tt := range tests {
		got, ok := serverIDFromSubject(tt.subject)
		if got != tt.want || ok != tt.ok {
			t.Errorf("serverIDFromSubject(%q) = (%q, %v), want (%q, %v)",
				tt.subject, got, ok, tt.want, tt.ok)
		}
	}
}
