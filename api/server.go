/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Actor-Name", "X-Actor-Role", "X-Actor-Signature"},
		AllowCredentials: true,
	}))

	r.Get("/api/healthz", h.Healthz)

	r.Route("/api/locations/{location}", func(r chi.Router) {
		r.Route("/ledgers", func(r chi.Router) {
			r.Get("/", h.ListLedgers)
			r.Get("/{slug}", h.GetLedger)
			r.Put("/{slug}", h.SaveLedger)
			r.Post("/{slug}/revert", h.RevertLedger)
			r.Delete("/{slug}", h.PurgeLedger)
			r.Get("/{slug}/report", h.GetLedgerReport)
		})

		r.Get("/reports/compliance", h.GetComplianceReport)
	})

	return r
}
