// Package models defines the domain types for Laguz.
package models

import "time"

// Note is the central entity: a short text document stored on-device.
//
// ID is assigned at creation and never changes. CreatedAt is set once;
// UpdatedAt is refreshed on every mutation. IsDeleted marks a soft
// delete: the note stays in the collection, is excluded from default
// queries and listings, and can be restored or permanently purged.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	IsPinned   bool      `json:"is_pinned"`
	IsFavorite bool      `json:"is_favorite"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Color      string    `json:"color,omitempty"`
	IsDeleted  bool      `json:"is_deleted"`
}

// NoteInput holds the caller-supplied fields for creating a note.
type NoteInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Color    string   `json:"color"`
}

// NoteUpdate is a tagged partial update: only non-nil fields are
// validated and merged over the existing note. This keeps partial
// updates statically enumerable instead of duck-typed maps.
type NoteUpdate struct {
	Title      *string   `json:"title,omitempty"`
	Content    *string   `json:"content,omitempty"`
	Category   *string   `json:"category,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	Color      *string   `json:"color,omitempty"`
	IsPinned   *bool     `json:"is_pinned,omitempty"`
	IsFavorite *bool     `json:"is_favorite,omitempty"`
	IsDeleted  *bool     `json:"is_deleted,omitempty"`
}

// IndexEntry is one row of the derived search index persisted under the
// notes_index key. All text fields are lower-cased copies; the index is
// best-effort and may be stale relative to the notes key.
type IndexEntry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Category  string   `json:"category,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	IsDeleted bool     `json:"is_deleted"`
}

// AppSettings is the user-tunable application state captured in backups.
type AppSettings struct {
	Theme             string `json:"theme"`
	DefaultSortBy     string `json:"default_sort_by"`
	DefaultSortOrder  string `json:"default_sort_order"`
	AutoBackupEnabled bool   `json:"auto_backup_enabled"`
}

// DefaultSettings returns the settings used when nothing is stored yet.
func DefaultSettings() AppSettings {
	return AppSettings{
		Theme:             "system",
		DefaultSortBy:     "updated_at",
		DefaultSortOrder:  "desc",
		AutoBackupEnabled: true,
	}
}
