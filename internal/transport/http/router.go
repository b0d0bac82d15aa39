// Package httptransport is the thin HTTP layer over the migration engine and
// the dual-mode repository. Handlers delegate to services; no business logic
// lives here.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"larder/internal/auth"
)

// NewRouter wires all public endpoints. Authentication is optional on every
// route: unauthenticated requests are served from the local store by the
// repository layer, so the middleware only rejects malformed tokens.
func NewRouter(h *Handler, sessions *auth.Sessions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(sessions, h.logger))

		r.Get("/migration/needed", h.HandleMigrationNeeded)
		r.Post("/migration/run", h.HandleMigrationRun)
		r.Get("/migration/status", h.HandleMigrationStatus)
		r.Post("/migration/dismiss", h.HandleMigrationDismiss)
		r.Post("/migration/sync", h.HandleMigrationSync)

		r.Get("/lists", h.HandleLists)
		r.Post("/lists", h.HandleCreateList)
		r.Get("/lists/active", h.HandleActiveList)
		r.Delete("/lists/{listID}", h.HandleDeleteList)
		r.Post("/lists/{listID}/items", h.HandleAddItem)
		r.Put("/lists/{listID}/items/{itemID}", h.HandleUpdateItem)
		r.Delete("/lists/{listID}/items/{itemID}", h.HandleRemoveItem)
		r.Post("/lists/{listID}/items/{itemID}/toggle", h.HandleTogglePurchased)

		r.Get("/recipes", h.HandleRecipes)
	})

	return r
}
