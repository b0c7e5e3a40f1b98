package rest

import (
	"log/slog"
	"net/http"

	"github.com/frankbria/auto-author/internal/transport/middleware"
)

// NewOpsRouter mounts the probe, metrics and admin endpoints. sweep may be nil.
func NewOpsRouter(logger *slog.Logger, health *HealthHandler, sweep *SweepHandler, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /live", health.Live)
	mux.HandleFunc("GET /ready", health.Ready)
	mux.HandleFunc("GET /health", health.Health)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	if sweep != nil {
		mux.HandleFunc("POST /admin/retention/sweep", sweep.Sweep)
	}

	return middleware.Wrap(mux,
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Actor(),
		middleware.Logger(logger),
	)
}
