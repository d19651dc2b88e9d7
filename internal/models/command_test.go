// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package models

import (
	"strings"
	"testing"
)

func TestClassifyCommand(t *testing.T) {
	tests := []struct {
		text string
		user string
		want CommandType
	}{
		{"restart server now", "gp", CommandTypeAdmin},
		{"kick PlayerOne", "gp", CommandTypeAdmin},
		{"say hello everyone", "gp", CommandTypeInGame},
		{"teleport PlayerOne base", "gp", CommandTypeInGame},
		{"backup world", "gp", CommandTypeAuto},
		{"status", "gp", CommandTypeSystem},
		{"do something odd", "gp", CommandTypeUnknown},
		// Actor heuristics win over keyword rules.
		{"kick idle players", "scheduler", CommandTypeAuto},
		{"restart", "system", CommandTypeSystem},
	}

	for _, tt := range tests {
		if got := ClassifyCommand(tt.text, tt.user); got != tt.want {
			t.Errorf("ClassifyCommand(%q, %q) = %q, want %q", tt.text, tt.user, got, tt.want)
		}
	}
}

func TestSanitizeCommand_RedactsSecrets(t *testing.T) {
	tests := []struct {
		in       string
		redacted string
		keeps    string
	}{
		{"login password=hunter2 now", "hunter2", "login"},
		{"auth token: abc123", "abc123", "auth"},
		{"set api_key=sk-9999", "sk-9999", "set"},
	}

	for _, tt := range tests {
		got := SanitizeCommand(tt.in)
		if strings.Contains(got, tt.redacted) {
			t.Errorf("SanitizeCommand(%q) = %q, still contains secret", tt.in, got)
		}
		if !strings.Contains(got, "[REDACTED]") {
			t.Errorf("SanitizeCommand(%q) = %q, missing redaction marker", tt.in, got)
		}
		if !strings.Contains(got, tt.keeps) {
			t.Errorf("SanitizeCommand(%q) = %q, lost non-sensitive text", tt.in, got)
		}
	}
}

func TestSanitizeCommand_CapsLength(t *testing.T) {
	long := strings.Repeat("x", 2000)
	if got := SanitizeCommand(long); len(got) != maxCommandLength {
		t.Errorf("len = %d, want %d", len(got), maxCommandLength)
	}
}

func TestNewCommandExecution_AutoClassifies(t *testing.T) {
	cmd, err := NewCommandExecution("srv-1", map[string]interface{}{
		"command":   "ban Griefer42",
		"user_name": "gp",
		"success":   true,
	}, nil)
	if err != nil {
		t.Fatalf("NewCommandExecution() error: %v", err)
	}
	if cmd.Type != CommandTypeAdmin {
		t.Errorf("Type = %q, want admin", cmd.Type)
	}
	if !cmd.Success {
		t.Error("Success = false, want true")
	}
	if cmd.ExecutedAt.IsZero() {
		t.Error("ExecutedAt should default to now")
	}
}

func TestNewCommandExecution_ExplicitTypeKept(t *testing.T) {
	cmd, err := NewCommandExecution("srv-1", map[string]interface{}{
		"command":      "say restarting soon",
		"command_type": "admin",
	}, nil)
	if err != nil {
		t.Fatalf("NewCommandExecution() error: %v", err)
	}
	if cmd.Type != CommandTypeAdmin {
		t.Errorf("Type = %q, explicit type must not be reclassified", cmd.Type)
	}
}

func TestCommand_FlatRoundTrip(t *testing.T) {
	ms := int64(125)
	cmd, err := NewCommandExecution("srv-1", map[string]interface{}{
		"command":           "kick PlayerOne",
		"user_name":         "gp",
		"success":           true,
		"execution_time_ms": float64(ms),
	}, nil)
	if err != nil {
		t.Fatalf("NewCommandExecution() error: %v", err)
	}

	got, err := CommandFromFlat(cmd.ToFlat(), nil)
	if err != nil {
		t.Fatalf("CommandFromFlat() error: %v", err)
	}
	if got.ID != cmd.ID {
		t.Errorf("ID = %v, want %v", got.ID, cmd.ID)
	}
	if got.Type != CommandTypeAdmin {
		t.Errorf("Type = %q, want admin", got.Type)
	}
	if got.ExecutionTimeMS == nil || *got.ExecutionTimeMS != ms {
		t.Errorf("ExecutionTimeMS = %v, want %d", got.ExecutionTimeMS, ms)
	}
}
