package models

import "time"

// Backup sources.
const (
	BackupSourceManual = "manual"
	BackupSourceAuto   = "auto"
)

// BackupRecord is a point-in-time capture of the full note collection
// plus settings. Records are immutable once written.
type BackupRecord struct {
	ID        string         `json:"id"`
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Notes     []Note         `json:"notes"`
	Settings  AppSettings    `json:"settings"`
	Metadata  BackupMetadata `json:"metadata"`
	Checksum  string         `json:"checksum,omitempty"`
}

// BackupMetadata is the lightweight index entry for a backup record.
type BackupMetadata struct {
	ID              string    `json:"id"`
	Version         string    `json:"version"`
	Timestamp       time.Time `json:"timestamp"`
	NotesCount      int       `json:"notes_count"`
	CategoriesCount int       `json:"categories_count"`
	TagsCount       int       `json:"tags_count"`
	Source          string    `json:"source"`
}
