package api

import (
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/query"
	"github.com/starford/laguz/internal/search"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest = models.NoteInput

// UpdateNoteRequest is the request body for a partial note update.
// Absent fields are left untouched.
type UpdateNoteRequest = models.NoteUpdate

// NoteListResponse wraps paginated note listings. Total counts the
// filtered collection before pagination.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// SearchResponse wraps ranked search results.
type SearchResponse struct {
	Results []search.Result `json:"results"`
}

// SuggestResponse wraps search suggestions.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// StatsResponse wraps collection statistics.
type StatsResponse = query.Stats

// BackupListResponse wraps the backup index, newest first.
type BackupListResponse struct {
	Backups []models.BackupMetadata `json:"backups"`
}
