// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the activation coordinator to the presentation layer
// over a loopback HTTP API.
package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/castlog/internal/domain/activation/model"
	"github.com/ManuGH/castlog/internal/health"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Activation is the coordinator surface the API drives.
type Activation interface {
	Snapshot() model.Snapshot
	IngestAttribution(ctx context.Context, payload model.Attribution) error
	IngestDeeplink(payload model.Attribution) error
	GrantPermission(ctx context.Context) error
	RejectPermission(ctx context.Context) error
	SetPushToken(ctx context.Context, token string) error
	SetTemporaryDestination(ctx context.Context, destination string) error
}

// Config configures the router.
type Config struct {
	// RateLimit applies to write endpoints, per client per minute.
	RateLimit int
	// TracingService names server spans; empty disables tracing.
	TracingService string
}

// Server owns the HTTP routes.
type Server struct {
	cfg        Config
	activation Activation
	health     *health.Manager
}

// New returns a server. health may be nil.
func New(cfg Config, activation Activation, hm *health.Manager) *Server {
	if hm == nil {
		hm = health.NewManager("")
	}
	return &Server{cfg: cfg, activation: activation, health: hm}
}

// Handler builds the router with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(AccessLog)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(s.cfg.RateLimit))
			r.Post("/attribution", s.handleAttribution)
			r.Post("/deeplink", s.handleDeeplink)
			r.Post("/permission/grant", s.handleGrant)
			r.Post("/permission/reject", s.handleReject)
			r.Put("/push-token", s.handlePushToken)
			r.Put("/temporary-destination", s.handleTemporaryDestination)
		})
	})

	if s.cfg.TracingService == "" {
		return r
	}
	return Tracing(s.cfg.TracingService)(r)
}
