// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

// CommandType classifies an administrative or automatic server action.
type CommandType string

const (
	CommandTypeAdmin   CommandType = "admin"
	CommandTypeInGame  CommandType = "ingame"
	CommandTypeAuto    CommandType = "auto"
	CommandTypeSystem  CommandType = "system"
	CommandTypeUnknown CommandType = "unknown"
)

// ParseCommandType maps a raw string to a CommandType, degrading unknown
// values to CommandTypeUnknown.
func ParseCommandType(s string) (CommandType, bool) {
	switch CommandType(s) {
	case CommandTypeAdmin, CommandTypeInGame, CommandTypeAuto, CommandTypeSystem:
		return CommandType(s), true
	case CommandTypeUnknown:
		return CommandTypeUnknown, true
	default:
		return CommandTypeUnknown, false
	}
}

// maxCommandLength caps stored command text.
const maxCommandLength = 500

// classifyRule maps a command-text keyword to a category. Rules are
// evaluated in order, first match wins, so more specific keywords
// belong earlier in the table.
type classifyRule struct {
	Keyword string
	Type    CommandType
}

// classifyRules is the data-driven classification table. New keywords are
// added here, not as new code paths.
var classifyRules = []classifyRule{
	{"restart", CommandTypeAdmin},
	{"shutdown", CommandTypeAdmin},
	{"stop", CommandTypeAdmin},
	{"ban", CommandTypeAdmin},
	{"kick", CommandTypeAdmin},
	{"mute", CommandTypeAdmin},
	{"unban", CommandTypeAdmin},
	{"wipe", CommandTypeAdmin},
	{"update", CommandTypeAdmin},
	{"say", CommandTypeInGame},
	{"give", CommandTypeInGame},
	{"teleport", CommandTypeInGame},
	{"spawn", CommandTypeInGame},
	{"kill", CommandTypeInGame},
	{"heal", CommandTypeInGame},
	{"backup", CommandTypeAuto},
	{"save", CommandTypeAuto},
	{"cron", CommandTypeAuto},
	{"schedule", CommandTypeAuto},
	{"status", CommandTypeSystem},
	{"info", CommandTypeSystem},
	{"version", CommandTypeSystem},
	{"health", CommandTypeSystem},
}

// systemActors are user names that mark a command as machine-issued.
var systemActors = map[string]CommandType{
	"system":    CommandTypeSystem,
	"auto":      CommandTypeAuto,
	"scheduler": CommandTypeAuto,
	"cron":      CommandTypeAuto,
	"watchdog":  CommandTypeSystem,
}

// ClassifyCommand derives a command type from the command text and actor.
// Actor heuristics win over keyword rules: a scheduler running "kick" is
// still an automatic action.
func ClassifyCommand(text, user string) CommandType {
	if t, ok := systemActors[strings.ToLower(strings.TrimSpace(user))]; ok {
		return t
	}
	lowered := strings.ToLower(text)
	for _, rule := range classifyRules {
		if strings.Contains(lowered, rule.Keyword) {
			return rule.Type
		}
	}
	return CommandTypeUnknown
}

// sensitiveKeys are substrings whose values get redacted from command text.
var sensitiveKeys = []string{"password", "token", "secret", "apikey", "api_key", "auth"}

// SanitizeCommand redacts sensitive values and caps the text length.
// Redaction replaces everything after a sensitive key on the same word
// boundary, e.g. `login password=hunter2` becomes `login password=[REDACTED]`.
func SanitizeCommand(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		lowered := strings.ToLower(f)
		for _, key := range sensitiveKeys {
			idx := strings.Index(lowered, key)
			if idx < 0 {
				continue
			}
			// Redact the value part if the field is key=value or
			// key:value, otherwise redact the following field.
			if sep := strings.IndexAny(f[idx:], "=:"); sep >= 0 {
				fields[i] = f[:idx+sep+1] + "[REDACTED]"
			} else if i+1 < len(fields) {
				fields[i+1] = "[REDACTED]"
			}
			break
		}
	}
	out := strings.Join(fields, " ")
	if len(out) > maxCommandLength {
		out = out[:maxCommandLength]
	}
	return out
}

// CommandExecution is one recorded administrative or automatic action.
type CommandExecution struct {
	ID              uuid.UUID   `json:"command_id" db:"id"`
	ServerID        string      `json:"server_id" db:"server_id"`
	Type            CommandType `json:"command_type" db:"command_type"`
	Command         string      `json:"command" db:"command_text"`
	User            string      `json:"user_name" db:"user_name"`
	Success         bool        `json:"success" db:"success"`
	ExecutionTimeMS *int64      `json:"execution_time_ms,omitempty" db:"execution_time_ms"`
	ExecutedAt      time.Time   `json:"timestamp" db:"executed_at"`
	SchemaVersion   int         `json:"schema_version" db:"schema_version"`
}

// NewCommandExecution builds a command record from an untrusted flat map.
// The command type is auto-classified when absent or unknown, the text is
// sanitized, and bad timestamps coerce to now.
func NewCommandExecution(serverID string, data map[string]interface{}, log *logger.Logger) (*CommandExecution, error) {
	if log == nil {
		log = logger.Nop()
	}
	if serverID == "" {
		return nil, errEmptyServerID
	}

	text := SanitizeCommand(flatString(data, "command"))
	user := flatString(data, "user_name")
	if user == "" {
		user = flatString(data, "user")
	}

	cmdType, known := ParseCommandType(flatString(data, "command_type"))
	if !known {
		if raw := flatString(data, "command_type"); raw != "" {
			log.Warn("unknown command type, auto-classifying", "command_type", raw, "server_id", serverID)
		}
		cmdType = ClassifyCommand(text, user)
	}

	cmd := &CommandExecution{
		ID:            uuid.New(),
		ServerID:      serverID,
		Type:          cmdType,
		Command:       text,
		User:          user,
		Success:       flatBool(data, "success"),
		ExecutedAt:    CoerceTimestamp(data["timestamp"], log),
		SchemaVersion: CurrentSchemaVersion,
	}
	if id, err := uuid.Parse(flatString(data, "command_id")); err == nil {
		cmd.ID = id
	}
	if _, ok := data["execution_time_ms"]; ok {
		ms := int64(flatFloat(data, "execution_time_ms"))
		if ms >= 0 {
			cmd.ExecutionTimeMS = &ms
		}
	}
	return cmd, nil
}

// ToFlat converts the command to its flat key-value representation.
func (c *CommandExecution) ToFlat() map[string]interface{} {
	flat := map[string]interface{}{
		"command_id":     c.ID.String(),
		"server_id":      c.ServerID,
		"command_type":   string(c.Type),
		"command":        c.Command,
		"user_name":      c.User,
		"success":        c.Success,
		"timestamp":      c.ExecutedAt.UTC().Format(time.RFC3339Nano),
		"schema_version": c.SchemaVersion,
	}
	if c.ExecutionTimeMS != nil {
		flat["execution_time_ms"] = *c.ExecutionTimeMS
	}
	return flat
}

// CommandFromFlat rebuilds a command from its flat representation.
func CommandFromFlat(flat map[string]interface{}, log *logger.Logger) (*CommandExecution, error) {
	return NewCommandExecution(flatString(flat, "server_id"), flat, log)
}
