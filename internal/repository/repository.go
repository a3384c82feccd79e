// Package repository owns the canonical note collection. It is the only
// component permitted to write notes to the persistent store.
//
// Every mutating operation is load-modify-save over the full collection
// under a single key. Two operations racing between their load and save
// can produce a lost update (last write wins); this is accepted for
// single-user, single-device usage and intentionally not hardened with
// optimistic locking.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/kvstore"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/validate"
)

// Persisted state keys.
const (
	NotesKey    = "notes"
	IndexKey    = "notes_index"
	SettingsKey = "settings"
)

// Repository coordinates note persistence, validation, and the derived
// search index.
type Repository struct {
	store    kvstore.Provider
	checker  *validate.Checker
	maxNotes int
	logger   *slog.Logger
}

// New creates a Repository. maxNotes caps the collection size counting
// both active and soft-deleted notes.
func New(store kvstore.Provider, limits validate.Limits, maxNotes int, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:    store,
		checker:  validate.NewChecker(limits),
		maxNotes: maxNotes,
		logger:   logger,
	}
}

// LoadAll reads the full collection from the store. An empty store is
// not an error and yields an empty slice. Notes persisted before the
// favorite flag existed deserialize with IsFavorite false.
func (r *Repository) LoadAll() ([]models.Note, error) {
	data, err := r.store.Get(NotesKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Note{}, nil
		}
		return nil, apperr.StorageRead(NotesKey, err)
	}
	var notes []models.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, apperr.StorageRead(NotesKey, err)
	}
	return notes, nil
}

// SaveAll persists the full collection under a single key and refreshes
// the derived search index. Index refresh is best-effort: its failure is
// logged and never fails the save.
func (r *Repository) SaveAll(notes []models.Note) error {
	data, err := json.Marshal(notes)
	if err != nil {
		return apperr.StorageWrite(NotesKey, err)
	}
	if err := r.store.Set(NotesKey, data); err != nil {
		return apperr.StorageWrite(NotesKey, err)
	}
	if err := r.RefreshIndex(notes); err != nil {
		r.logger.Warn("index refresh failed", slog.String("error", err.Error()))
	}
	return nil
}

// Create validates and sanitizes input, enforces the collection ceiling,
// and prepends a new note to the collection.
func (r *Repository) Create(in models.NoteInput) (*models.Note, error) {
	in = validate.SanitizeInput(in)
	res := r.checker.Input(in)
	r.logWarnings(res)
	if !res.Valid() {
		return nil, apperr.NewValidation(res.Errors...)
	}

	notes, err := r.LoadAll()
	if err != nil {
		return nil, err
	}
	// Soft-deleted notes count toward the ceiling too.
	if len(notes) >= r.maxNotes {
		return nil, fmt.Errorf("%w: maximum of %d notes reached", apperr.ErrCapacityExceeded, r.maxNotes)
	}

	now := time.Now().UTC()
	note := models.Note{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		Category:  in.Category,
		Tags:      in.Tags,
		Color:     in.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	notes = append([]models.Note{note}, notes...)
	if err := r.SaveAll(notes); err != nil {
		return nil, err
	}
	return &note, nil
}

// Update merges the supplied fields over the existing note and refreshes
// its UpdatedAt. Only supplied fields are validated.
func (r *Repository) Update(id string, u models.NoteUpdate) (*models.Note, error) {
	u = validate.SanitizeUpdate(u)
	res := r.checker.Update(u)
	r.logWarnings(res)
	if !res.Valid() {
		return nil, apperr.NewValidation(res.Errors...)
	}

	notes, err := r.LoadAll()
	if err != nil {
		return nil, err
	}
	i := indexOf(notes, id)
	if i < 0 {
		return nil, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}

	n := notes[i]
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Content != nil {
		n.Content = *u.Content
	}
	if u.Category != nil {
		n.Category = *u.Category
	}
	if u.Tags != nil {
		n.Tags = *u.Tags
	}
	if u.Color != nil {
		n.Color = *u.Color
	}
	if u.IsPinned != nil {
		n.IsPinned = *u.IsPinned
	}
	if u.IsFavorite != nil {
		n.IsFavorite = *u.IsFavorite
	}
	if u.IsDeleted != nil {
		n.IsDeleted = *u.IsDeleted
	}
	n.UpdatedAt = time.Now().UTC()
	notes[i] = n

	if err := r.SaveAll(notes); err != nil {
		return nil, err
	}
	return &n, nil
}

// SoftDelete marks a note deleted while keeping it in the collection.
func (r *Repository) SoftDelete(id string) error {
	deleted := true
	_, err := r.Update(id, models.NoteUpdate{IsDeleted: &deleted})
	return err
}

// Restore clears the soft-delete flag.
func (r *Repository) Restore(id string) (*models.Note, error) {
	deleted := false
	return r.Update(id, models.NoteUpdate{IsDeleted: &deleted})
}

// PermanentlyDelete removes a note from the collection entirely.
// Deleting an absent id is a no-op.
func (r *Repository) PermanentlyDelete(id string) error {
	notes, err := r.LoadAll()
	if err != nil {
		return err
	}
	i := indexOf(notes, id)
	if i < 0 {
		return nil
	}
	notes = append(notes[:i], notes[i+1:]...)
	return r.SaveAll(notes)
}

// TogglePin flips the pinned flag.
func (r *Repository) TogglePin(id string) (*models.Note, error) {
	return r.toggle(id, func(n *models.Note) { n.IsPinned = !n.IsPinned })
}

// ToggleFavorite flips the favorite flag.
func (r *Repository) ToggleFavorite(id string) (*models.Note, error) {
	return r.toggle(id, func(n *models.Note) { n.IsFavorite = !n.IsFavorite })
}

func (r *Repository) toggle(id string, flip func(*models.Note)) (*models.Note, error) {
	notes, err := r.LoadAll()
	if err != nil {
		return nil, err
	}
	i := indexOf(notes, id)
	if i < 0 {
		return nil, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	flip(&notes[i])
	notes[i].UpdatedAt = time.Now().UTC()
	if err := r.SaveAll(notes); err != nil {
		return nil, err
	}
	n := notes[i]
	return &n, nil
}

// Duplicate creates a copy of the source note with a fresh id and
// timestamps. The copy is never pinned, favorited, or deleted.
func (r *Repository) Duplicate(id string) (*models.Note, error) {
	notes, err := r.LoadAll()
	if err != nil {
		return nil, err
	}
	i := indexOf(notes, id)
	if i < 0 {
		return nil, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
	}
	src := notes[i]
	return r.Create(models.NoteInput{
		Title:    src.Title + " (Copy)",
		Content:  src.Content,
		Category: src.Category,
		Tags:     append([]string(nil), src.Tags...),
		Color:    src.Color,
	})
}

// ClearAll deletes the entire collection and its derived index.
func (r *Repository) ClearAll() error {
	if err := r.store.Remove(NotesKey); err != nil {
		return apperr.StorageWrite(NotesKey, err)
	}
	if err := r.store.Remove(IndexKey); err != nil {
		r.logger.Warn("index clear failed", slog.String("error", err.Error()))
	}
	return nil
}

func (r *Repository) logWarnings(res validate.Result) {
	for _, w := range res.Warnings {
		r.logger.Warn("note validation", slog.String("warning", w))
	}
}

func indexOf(notes []models.Note, id string) int {
	for i := range notes {
		if notes[i].ID == id {
			return i
		}
	}
	return -1
}
