// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package errors

import (
	"context"
	"testing"
)

func TestClassificationPredicates(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
		wantNoData      bool
		wantTimeout     bool
	}{
		{
			name:            "store unavailable",
			err:             Unavailable("durable", context.DeadlineExceeded),
			wantUnavailable: true,
		},
		{
			name:       "no data",
			err:        NoData("alpha"),
			wantNoData: true,
		},
		{
			name:        "plain timeout",
			err:         New(CodeTimeout, "operation timed out"),
			wantTimeout: true,
		},
		{
			name:        "source timeout",
			err:         New(CodeSourceTimeout, "source timed out"),
			wantTimeout: true,
		},
		{
			// A source that errors is not a timeout; the two codes
			// route differently through fallback decisions.
			name: "source failure is not a timeout",
			err:  SourceFailed("live_sensors", context.Canceled),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailable(tt.err); got != tt.wantUnavailable {
				t.Errorf("IsUnavailable() = %v, want %v", got, tt.wantUnavailable)
			}
			if got := IsNoData(tt.err); got != tt.wantNoData {
				t.Errorf("IsNoData() = %v, want %v", got, tt.wantNoData)
			}
			if got := IsTimeout(tt.err); got != tt.wantTimeout {
				t.Errorf("IsTimeout() = %v, want %v", got, tt.wantTimeout)
			}
		})
	}
}
