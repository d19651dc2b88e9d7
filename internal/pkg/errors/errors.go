// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("timeout")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNoData           = errors.New("no data")
	ErrValidation       = errors.New("validation error")
)

// AppError represents an application-specific error with code and details
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to an AppError
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Is checks if the error matches the target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetAppError extracts an AppError from an error chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Unavailable creates a store-unavailable error. The query layer treats
// these as a signal to fall through to the secondary store.
func Unavailable(store string, err error) *AppError {
	return Wrap(err, CodeStoreUnavailable, fmt.Sprintf("%s store unavailable", store))
}

// NoData creates a typed no-data error for queries that found nothing
// in any store.
func NoData(serverID string) *AppError {
	return New(CodeNoData, "no data available").WithDetail("server_id", serverID)
}

// SourceFailed creates an error for a live telemetry source that errored
// or timed out during a fused read.
func SourceFailed(source string, err error) *AppError {
	return Wrap(err, CodeSourceFailed, fmt.Sprintf("source %s failed", source))
}

// IsUnavailable reports whether the error marks a store as unreachable.
func IsUnavailable(err error) bool {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Code == CodeStoreUnavailable
	}
	return errors.Is(err, ErrStoreUnavailable)
}

// IsNoData reports whether the error is a typed empty result.
func IsNoData(err error) bool {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Code == CodeNoData
	}
	return errors.Is(err, ErrNoData)
}

// IsNotFound reports whether the error is a not-found error.
func IsNotFound(err error) bool {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether the error is a timeout.
func IsTimeout(err error) bool {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Code == CodeTimeout || appErr.Code == CodeSourceTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Code == CodeValidationFailed || appErr.Code == CodeInvalidInput
	}
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidInput)
}
