// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package handlers contains the HTTP handlers of the telemetry API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/errors"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
)

// BaseHandler provides common functionality for handlers.
type BaseHandler struct {
	logger *logger.Logger
}

// NewBaseHandler creates a new base handler.
func NewBaseHandler(log *logger.Logger) BaseHandler {
	return BaseHandler{logger: log}
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ParseJSON decodes the request body into dst.
func (h *BaseHandler) ParseJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, errors.CodeInvalidFormat, "invalid JSON body")
	}
	return nil
}

// QueryParam returns a query string parameter.
func (h *BaseHandler) QueryParam(r *http.Request, name string) string {
	return r.URL.Query().Get(name)
}

// QueryInt returns an integer query parameter, or def when absent or
// unparseable.
func (h *BaseHandler) QueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// OK writes a 200 response with a JSON body.
func (h *BaseHandler) OK(w http.ResponseWriter, body interface{}) {
	h.writeJSON(w, http.StatusOK, body)
}

// Created writes a 201 response with a JSON body.
func (h *BaseHandler) Created(w http.ResponseWriter, body interface{}) {
	h.writeJSON(w, http.StatusCreated, body)
}

// HandleError maps an error to an HTTP status and writes the envelope.
func (h *BaseHandler) HandleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	if appErr, ok := errors.GetAppError(err); ok {
		resp.Error = appErr.Message
		resp.Code = appErr.Code
		resp.Details = appErr.Details
		status = statusForCode(appErr.Code)
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	}
	h.writeJSON(w, status, resp)
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// statusForCode maps application error codes to HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case errors.CodeNotFound, errors.CodeNoData:
		return http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeValidationFailed,
		errors.CodeInvalidFormat, errors.CodeMissingField,
		errors.CodeIngestRejected, errors.CodeDecodeFailed:
		return http.StatusBadRequest
	case errors.CodeTimeout, errors.CodeSourceTimeout:
		return http.StatusGatewayTimeout
	case errors.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
