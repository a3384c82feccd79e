// Package query derives filtered, sorted views from the note collection.
// All functions are pure: input slices are never mutated.
package query

import (
	"sort"
	"strings"

	"github.com/starford/laguz/internal/models"
)

// Sort fields and orders.
const (
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByTitle     = "title"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Options controls filtering, sorting, and pagination.
//
// Pointer fields distinguish "not specified" from a zero value. Tag
// matching uses OR semantics: a note qualifies when any of its tags
// matches any requested tag (case-insensitive). Category matching is
// exact. Limit <= 0 means no limit.
type Options struct {
	IncludeDeleted bool
	IsPinned       *bool
	Category       *string
	Tags           []string
	SearchTerm     string
	SortBy         string
	SortOrder      string
	Offset         int
	Limit          int
}

// Apply filters, sorts, and paginates notes per opts. Filtering happens
// first, then a stable sort, then pagination.
func Apply(notes []models.Note, opts Options) []models.Note {
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if n.IsDeleted && !opts.IncludeDeleted {
			continue
		}
		if opts.IsPinned != nil && n.IsPinned != *opts.IsPinned {
			continue
		}
		if opts.Category != nil && n.Category != *opts.Category {
			continue
		}
		if len(opts.Tags) > 0 && !anyTagMatches(n.Tags, opts.Tags) {
			continue
		}
		if opts.SearchTerm != "" && !matchesTerm(n, opts.SearchTerm) {
			continue
		}
		out = append(out, n)
	}

	sortNotes(out, opts.SortBy, opts.SortOrder)

	return paginate(out, opts.Offset, opts.Limit)
}

// Categories returns the distinct categories of active notes, sorted
// lexicographically. De-duplication is case-insensitive; the first-seen
// casing wins.
func Categories(notes []models.Note) []string {
	return collectDistinct(notes, func(n models.Note) []string {
		if n.Category == "" {
			return nil
		}
		return []string{n.Category}
	})
}

// Tags returns the distinct tags of active notes, sorted
// lexicographically. De-duplication is case-insensitive.
func Tags(notes []models.Note) []string {
	return collectDistinct(notes, func(n models.Note) []string { return n.Tags })
}

// Stats summarizes the active (non-deleted) portion of the collection.
type Stats struct {
	Total      int `json:"total"`
	Pinned     int `json:"pinned"`
	Categories int `json:"categories"`
	Tags       int `json:"tags"`
}

// Compute calculates statistics over active notes only.
func Compute(notes []models.Note) Stats {
	s := Stats{}
	for _, n := range notes {
		if n.IsDeleted {
			continue
		}
		s.Total++
		if n.IsPinned {
			s.Pinned++
		}
	}
	s.Categories = len(Categories(notes))
	s.Tags = len(Tags(notes))
	return s
}

func anyTagMatches(noteTags, want []string) bool {
	for _, nt := range noteTags {
		for _, w := range want {
			if strings.EqualFold(nt, w) {
				return true
			}
		}
	}
	return false
}

func matchesTerm(n models.Note, term string) bool {
	t := strings.ToLower(term)
	if strings.Contains(strings.ToLower(n.Title), t) ||
		strings.Contains(strings.ToLower(n.Content), t) ||
		strings.Contains(strings.ToLower(n.Category), t) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), t) {
			return true
		}
	}
	return false
}

func sortNotes(notes []models.Note, sortBy, order string) {
	if sortBy == "" {
		sortBy = SortByUpdatedAt
	}
	if order == "" {
		order = OrderDesc
	}
	desc := order == OrderDesc

	less := func(a, b models.Note) bool {
		switch sortBy {
		case SortByCreatedAt:
			return a.CreatedAt.Before(b.CreatedAt)
		case SortByTitle:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		default:
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	}

	// Stable so equal keys keep their relative input order.
	sort.SliceStable(notes, func(i, j int) bool {
		if desc {
			return less(notes[j], notes[i])
		}
		return less(notes[i], notes[j])
	})
}

func paginate(notes []models.Note, offset, limit int) []models.Note {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(notes) {
		return []models.Note{}
	}
	notes = notes[offset:]
	if limit > 0 && limit < len(notes) {
		notes = notes[:limit]
	}
	return notes
}

func collectDistinct(notes []models.Note, pick func(models.Note) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range notes {
		if n.IsDeleted {
			continue
		}
		for _, v := range pick(n) {
			lower := strings.ToLower(v)
			if _, ok := seen[lower]; ok {
				continue
			}
			seen[lower] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
