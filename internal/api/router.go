package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/maxwell/internal/memory"
)

// RouterConfig controls auth and per-request defaults.
type RouterConfig struct {
	AuthEnabled bool
	Token       string
	// Recency is the default for search and context requests that do not
	// pass a recency parameter.
	Recency bool
}

// NewRouter creates a chi router with all memory routes mounted. It is
// meant to be mounted under /api.
func NewRouter(svc *memory.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc, cfg.Recency)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.Route("/memory", func(r chi.Router) {
		// Retrieval.
		r.Get("/search", h.Search)
		r.Get("/context", h.Context)
		r.Get("/tasks", h.PendingTasks)
		r.Get("/stats", h.Stats)
		r.Get("/entities/{name}", h.Entity)
		r.Get("/digest", h.Digest)

		// Writes.
		r.Post("/reindex", h.Reindex)
		r.Post("/events", h.RecordEvent)
		r.Post("/log", h.Log)
	})

	return r
}
