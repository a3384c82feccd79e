// Package search implements relevance-ranked full-text search over the
// note collection, distinct from the query package's substring filter.
package search

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/laguz/internal/models"
)

// Scoring weights.
const (
	weightTitlePrefix = 100
	weightTitle       = 50
	weightContent     = 25
	weightCategory    = 30
	weightTag         = 35
	weightPinned      = 10
	penaltyDeleted    = 50

	maxSuggestions = 10
)

// Highlight marks one occurrence of the search term within a field.
// Field is "title", "content", "category", or "tags[i]" for the i-th
// tag. Start and End are byte offsets into the original field value.
type Highlight struct {
	Field       string `json:"field"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	MatchedText string `json:"matched_text"`
}

// Result is a single ranked search hit.
type Result struct {
	Note       models.Note `json:"note"`
	Score      int         `json:"score"`
	Highlights []Highlight `json:"highlights"`
}

// Score computes the additive relevance of a note for term. Matching is
// case-insensitive. A non-positive score means the note should be
// excluded from results.
func Score(n models.Note, term string) int {
	t := strings.ToLower(term)
	if t == "" {
		return 0
	}

	score := 0
	title := strings.ToLower(n.Title)
	if strings.Contains(title, t) {
		if strings.HasPrefix(title, t) {
			score += weightTitlePrefix
		} else {
			score += weightTitle
		}
	}
	if strings.Contains(strings.ToLower(n.Content), t) {
		score += weightContent
	}
	if n.Category != "" && strings.Contains(strings.ToLower(n.Category), t) {
		score += weightCategory
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), t) {
			score += weightTag
		}
	}
	if n.IsPinned {
		score += weightPinned
	}
	if n.IsDeleted {
		score -= penaltyDeleted
	}
	return score
}

// Search ranks notes by relevance, descending. Ties keep input order.
// Notes scoring zero or below are excluded.
func Search(notes []models.Note, term string) []Result {
	if strings.TrimSpace(term) == "" {
		return nil
	}

	var out []Result
	for _, n := range notes {
		s := Score(n, term)
		if s <= 0 {
			continue
		}
		out = append(out, Result{Note: n, Score: s, Highlights: highlights(n, term)})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Suggest collects completion candidates containing partial: words from
// titles longer than 2 characters, plus full category and tag values of
// any length. Output is de-duplicated, sorted, and capped.
func Suggest(notes []models.Note, partial string) []string {
	p := strings.ToLower(strings.TrimSpace(partial))
	if p == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(candidate string) {
		lower := strings.ToLower(candidate)
		if !strings.Contains(lower, p) {
			return
		}
		if _, ok := seen[lower]; ok {
			return
		}
		seen[lower] = struct{}{}
		out = append(out, candidate)
	}

	for _, n := range notes {
		// Short title words are noise; categories and tags are chosen
		// labels and stay eligible at any length.
		for _, word := range strings.Fields(n.Title) {
			if len(word) > 2 {
				add(word)
			}
		}
		if n.Category != "" {
			add(n.Category)
		}
		for _, tag := range n.Tags {
			add(tag)
		}
	}

	sort.Strings(out)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func highlights(n models.Note, term string) []Highlight {
	var out []Highlight
	out = append(out, fieldSpans("title", n.Title, term)...)
	out = append(out, fieldSpans("content", n.Content, term)...)
	if n.Category != "" {
		out = append(out, fieldSpans("category", n.Category, term)...)
	}
	for i, tag := range n.Tags {
		out = append(out, fieldSpans(fmt.Sprintf("tags[%d]", i), tag, term)...)
	}
	return out
}

// fieldSpans finds every non-overlapping occurrence of term in text,
// scanning left to right and advancing past each match.
//
// Lowercasing can change a rune's byte length (U+0130 "İ" shrinks to
// "i"), so matching runs over a lowered copy while an offset table maps
// every lowered byte back to the original rune start. Spans therefore
// always index the original field value on rune boundaries.
func fieldSpans(field, text, term string) []Highlight {
	lowerTerm := strings.ToLower(term)
	if lowerTerm == "" {
		return nil
	}

	var lowered strings.Builder
	lowered.Grow(len(text))
	offsets := make([]int, 0, len(text)+1)
	for i, r := range text {
		lr := unicode.ToLower(r)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			offsets = append(offsets, i)
		}
		lowered.WriteRune(lr)
	}
	offsets = append(offsets, len(text))
	lowerText := lowered.String()

	var out []Highlight
	start := 0
	for {
		idx := strings.Index(lowerText[start:], lowerTerm)
		if idx < 0 {
			break
		}
		lowFrom := start + idx
		lowTo := lowFrom + len(lowerTerm)
		from := offsets[lowFrom]
		to := offsets[lowTo]
		out = append(out, Highlight{
			Field:       field,
			Start:       from,
			End:         to,
			MatchedText: text[from:to],
		})
		start = lowTo
	}
	return out
}
