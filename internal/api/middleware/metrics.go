// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package middleware holds HTTP middleware for the telemetry API.
package middleware

import (
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/telemetry"
)

// Metrics records request counts and latency per method and status.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := telemetry.NewTimer()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		telemetry.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		timer.ObserveDurationVec(telemetry.APIRequestDuration, r.Method)
	})
}
