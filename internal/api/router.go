package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/backup"
	"github.com/starford/laguz/internal/repository"
	"github.com/starford/laguz/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, receives change events and serves GET /events.
func NewRouter(repo *repository.Repository, engine *backup.Engine, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(repo, engine, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD and lifecycle.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Delete("/notes", h.ClearNotes)
	r.Get("/notes/{id}", h.GetNote)
	r.Patch("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Post("/notes/{id}/restore", h.RestoreNote)
	r.Post("/notes/{id}/duplicate", h.DuplicateNote)
	r.Post("/notes/{id}/pin", h.TogglePin)
	r.Post("/notes/{id}/favorite", h.ToggleFavorite)

	// Derived listings.
	r.Get("/categories", h.Categories)
	r.Get("/tags", h.Tags)
	r.Get("/stats", h.Stats)

	// Search.
	r.Get("/search", h.Search)
	r.Get("/search/suggest", h.Suggest)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)

	// Backups.
	r.Post("/backups", h.CreateBackup)
	r.Get("/backups", h.ListBackups)
	r.Post("/backups/import", h.ImportBackup)
	r.Post("/backups/{id}/restore", h.RestoreBackup)
	r.Delete("/backups/{id}", h.DeleteBackup)
	r.Get("/backups/{id}/export", h.ExportBackup)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
