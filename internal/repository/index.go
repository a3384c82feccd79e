package repository

import (
	"encoding/json"
	"strings"

	"github.com/starford/laguz/internal/models"
)

// RefreshIndex rewrites the derived search index: lower-cased copies of
// the searchable fields for external tooling. The index is a cache, not
// a source of truth; authoritative queries always run against the live
// collection.
func (r *Repository) RefreshIndex(notes []models.Note) error {
	entries := make([]models.IndexEntry, len(notes))
	for i, n := range notes {
		tags := make([]string, len(n.Tags))
		for j, t := range n.Tags {
			tags[j] = strings.ToLower(t)
		}
		entries[i] = models.IndexEntry{
			ID:        n.ID,
			Title:     strings.ToLower(n.Title),
			Content:   strings.ToLower(n.Content),
			Category:  strings.ToLower(n.Category),
			Tags:      tags,
			IsDeleted: n.IsDeleted,
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return r.store.Set(IndexKey, data)
}
