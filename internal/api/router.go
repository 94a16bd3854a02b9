package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-climate/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/climate", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(requirePermission(auth.PermClimateRead))
					r.Get("/status", s.handleGetStatus)
					r.Get("/decisions", s.handleListDecisions)
					r.Get("/entities/{id}/state", s.handleGetEntityState)
				})

				r.Group(func(r chi.Router) {
					r.Use(requirePermission(auth.PermClimateOperate))
					r.Post("/override", s.handleSetOverride)
					r.Delete("/override", s.handleClearOverride)
					r.Put("/system-mode", s.handleSetSystemMode)
					r.Post("/readings", s.handleReading)
				})

				r.With(requirePermission(auth.PermSystemAdmin)).
					Delete("/decisions", s.handlePruneDecisions)
			})

			r.With(requirePermission(auth.PermSystemAdmin)).
				Get("/metrics", s.handleMetrics)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.climate.GetStatus()
	status := "ok"
	code := http.StatusOK
	if !st.Running {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"version":  s.version,
		"strategy": s.climate.Strategy(),
		"engine":   map[string]any{"running": st.Running},
	})
}
