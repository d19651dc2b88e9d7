// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package errors

// General error codes
const (
	CodeInternal     = "INTERNAL_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeTimeout      = "TIMEOUT"
)

// Validation error codes
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidFormat    = "INVALID_FORMAT"
	CodeMissingField     = "MISSING_FIELD"
)

// Storage error codes
const (
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeNoData           = "NO_DATA"
	CodeQueryFailed      = "QUERY_FAILED"
	CodeMigrationFailed  = "MIGRATION_FAILED"
)

// Telemetry source error codes
const (
	CodeSourceFailed  = "SOURCE_FAILED"
	CodeSourceTimeout = "SOURCE_TIMEOUT"
)

// Ingestion error codes
const (
	CodeIngestRejected = "INGEST_REJECTED"
	CodeDecodeFailed   = "DECODE_FAILED"
)
