// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 GUST contributors
// https://github.com/WDC-GP/GUST-MARK-1-sub001

// Package api wires the HTTP surface of the telemetry engine.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/api/handlers"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/api/middleware"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/pkg/logger"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/services/health"
	"github.com/WDC-GP/GUST-MARK-1-sub001/internal/telemetry"
)

// Config holds HTTP server settings.
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8420,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP front of the engine.
type Server struct {
	cfg    Config
	http   *http.Server
	logger *logger.Logger
}

// NewServer builds the router and the HTTP server around the
// coordinator.
func NewServer(cfg Config, coordinator *health.Coordinator, version string, log *logger.Logger) *Server {
	log = log.Named("api")

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)

	telemetryHandler := handlers.NewTelemetryHandler(coordinator, log)
	systemHandler := handlers.NewSystemHandler(coordinator, version, log)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/servers", telemetryHandler.Routes())
	})
	r.Get("/healthz", systemHandler.Healthz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: log,
	}
}

// Start serves until Shutdown. Blocks.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
