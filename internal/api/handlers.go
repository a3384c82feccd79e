package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/backup"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/query"
	"github.com/starford/laguz/internal/repository"
	"github.com/starford/laguz/internal/search"
	"github.com/starford/laguz/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	repo   *repository.Repository
	engine *backup.Engine
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil (no events).
func NewHandler(repo *repository.Repository, engine *backup.Engine, broker *sse.Broker) *Handler {
	return &Handler{repo: repo, engine: engine, broker: broker}
}

func (h *Handler) noteEvent(kind, id string) {
	if h.broker != nil {
		h.broker.PublishNoteEvent(kind, id)
	}
}

// parseQueryOptions builds query.Options from URL parameters.
func parseQueryOptions(r *http.Request) query.Options {
	q := r.URL.Query()
	opts := query.Options{
		IncludeDeleted: q.Get("include_deleted") == "true",
		SearchTerm:     q.Get("q"),
		SortBy:         q.Get("sort_by"),
		SortOrder:      q.Get("sort_order"),
	}
	if v := q.Get("pinned"); v != "" {
		pinned := v == "true"
		opts.IsPinned = &pinned
	}
	if q.Has("category") {
		category := q.Get("category")
		opts.Category = &category
	}
	if v := q.Get("tags"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.Tags = append(opts.Tags, t)
			}
		}
	}
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	return opts
}

// ListNotes handles GET /api/notes with filter/sort/pagination params.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.repo.LoadAll()
	if err != nil {
		writeFailure(w, err)
		return
	}
	opts := parseQueryOptions(r)

	// Total counts the filtered set, so pagination controls are applied
	// separately.
	unpaged := opts
	unpaged.Offset = 0
	unpaged.Limit = 0
	total := len(query.Apply(notes, unpaged))

	writeData(w, http.StatusOK, NoteListResponse{
		Notes: query.Apply(notes, opts),
		Total: total,
	})
}

// GetNote handles GET /api/notes/{id}. Soft-deleted notes remain
// addressable by id.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	notes, err := h.repo.LoadAll()
	if err != nil {
		writeFailure(w, err)
		return
	}
	for _, n := range notes {
		if n.ID == id {
			writeData(w, http.StatusOK, n)
			return
		}
	}
	writeFailure(w, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound))
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	note, err := h.repo.Create(req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.noteEvent("created", note.ID)
	writeData(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /api/notes/{id} with a partial update body.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	note, err := h.repo.Update(id, req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.noteEvent("updated", note.ID)
	writeData(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}. Default is a soft delete;
// ?permanent=true removes the note entirely (idempotent).
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if r.URL.Query().Get("permanent") == "true" {
		if err := h.repo.PermanentlyDelete(id); err != nil {
			writeFailure(w, err)
			return
		}
	} else {
		if err := h.repo.SoftDelete(id); err != nil {
			writeFailure(w, err)
			return
		}
	}
	h.noteEvent("deleted", id)
	writeData(w, http.StatusOK, nil)
}

// RestoreNote handles POST /api/notes/{id}/restore.
func (h *Handler) RestoreNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.repo.Restore(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.noteEvent("updated", note.ID)
	writeData(w, http.StatusOK, note)
}

// DuplicateNote handles POST /api/notes/{id}/duplicate.
func (h *Handler) DuplicateNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.repo.Duplicate(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.noteEvent("created", note.ID)
	writeData(w, http.StatusCreated, note)
}

// TogglePin handles POST /api/notes/{id}/pin.
func (h *Handler) TogglePin(w http.ResponseWriter, r *http.Request) {
	note, err := h.repo.TogglePin(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.noteEvent("updated", note.ID)
	writeData(w, http.StatusOK, note)
}

// ToggleFavorite handles POST /api/notes/{id}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	note, err := h.repo.ToggleFavorite(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.noteEvent("updated", note.ID)
	writeData(w, http.StatusOK, note)
}

// ClearNotes handles DELETE /api/notes.
func (h *Handler) ClearNotes(w http.ResponseWriter, _ *http.Request) {
	if err := h.repo.ClearAll(); err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// Categories handles GET /api/categories.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	notes, err := h.repo.LoadAll()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, query.Categories(notes))
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, _ *http.Request) {
	notes, err := h.repo.LoadAll()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, query.Tags(notes))
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	notes, err := h.repo.LoadAll()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, query.Compute(notes))
}

// Search handles GET /api/search: relevance-ranked results with
// highlighted match spans.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	notes, err := h.repo.LoadAll()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, SearchResponse{Results: search.Search(notes, term)})
}

// Suggest handles GET /api/search/suggest.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	partial := r.URL.Query().Get("q")
	notes, err := h.repo.LoadAll()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, SuggestResponse{Suggestions: search.Suggest(notes, partial)})
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	settings, err := h.repo.LoadSettings()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, settings)
}

// PutSettings handles PUT /api/settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.AppSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.repo.SaveSettings(settings); err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, settings)
}
