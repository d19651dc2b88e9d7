// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package models defines the self-validating telemetry records: metrics,
// command executions, snapshots, and derived trend views. Constructors
// accept untrusted input and correct it to safe defaults instead of
// failing; the only hard error is a missing server ID.
package models

import (
	"errors"
	"time"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

// CurrentSchemaVersion tags every persisted record. Version 1 records
// predate data-quality tracking and use legacy metric key names; FromLegacy
// migrates them.
const CurrentSchemaVersion = 2

// maxFutureDrift is how far into the future a producer clock may run
// before its timestamp is treated as malformed.
const maxFutureDrift = 24 * time.Hour

var errEmptyServerID = errors.New("server_id must not be empty")

// ErrEmptyServerID reports whether err is the empty-server-ID validation error.
func ErrEmptyServerID(err error) bool {
	return errors.Is(err, errEmptyServerID)
}

// CoerceTimestamp converts an untrusted timestamp value to time.Time.
// Accepted forms: time.Time, RFC3339(Nano) strings, and unix second or
// millisecond epochs as int/float. Zero, unparseable, or absurdly future
// values coerce to now with a logged warning.
func CoerceTimestamp(v interface{}, log *logger.Logger) time.Time {
	if log == nil {
		log = logger.Nop()
	}
	now := time.Now()

	var ts time.Time
	switch t := v.(type) {
	case nil:
		return now
	case time.Time:
		ts = t
	case *time.Time:
		if t == nil {
			return now
		}
		ts = *t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, t)
		}
		if err != nil {
			log.Warn("unparseable timestamp, using now", "raw", t)
			return now
		}
		ts = parsed
	case int64:
		ts = epochToTime(float64(t))
	case int:
		ts = epochToTime(float64(t))
	case float64:
		ts = epochToTime(t)
	default:
		log.Warn("unsupported timestamp type, using now", "raw", v)
		return now
	}

	if ts.IsZero() {
		return now
	}
	if ts.After(now.Add(maxFutureDrift)) {
		log.Warn("timestamp too far in the future, using now", "raw", ts)
		return now
	}
	return ts
}

// epochToTime interprets a numeric epoch, telling second and millisecond
// precision apart by magnitude. A second count at or above 1e12 would be
// past the year 33000, so such values are millisecond epochs.
func epochToTime(v float64) time.Time {
	if v >= 1e12 || v <= -1e12 {
		return time.UnixMilli(int64(v))
	}
	sec := int64(v)
	return time.Unix(sec, int64((v-float64(sec))*1e9))
}

// flatString pulls a string field from a flat map.
func flatString(flat map[string]interface{}, key string) string {
	if v, ok := flat[key].(string); ok {
		return v
	}
	return ""
}

// flatFloat pulls a numeric field from a flat map, tolerating the
// integer types JSON decoding and callers produce.
func flatFloat(flat map[string]interface{}, key string) float64 {
	switch v := flat[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	default:
		return 0
	}
}

// flatBool pulls a boolean field from a flat map.
func flatBool(flat map[string]interface{}, key string) bool {
	if v, ok := flat[key].(bool); ok {
		return v
	}
	return false
}

// flatMap pulls a nested map field from a flat map.
func flatMap(flat map[string]interface{}, key string) map[string]interface{} {
	if v, ok := flat[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
