// Package validate gatekeeps note fields before they reach the repository.
//
// Validation applies only to fields present in the input, so partial
// updates check only what they supply. Failures block the write and are
// reported as human-readable messages; warnings never block.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/laguz/internal/models"
)

// Limits holds the configured field constraints.
type Limits struct {
	MaxTitleLength int
	MaxNoteLength  int
	MaxTagsPerNote int
	MaxTagLength   int
	MaxCategoryLen int
}

// Result collects blocking errors and non-blocking warnings.
type Result struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the input may be persisted.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

var (
	hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	charsetRe  = regexp.MustCompile(`^[\p{L}\p{N}\-_\s]+$`)
	scriptRe   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
)

// Checker validates note fields against configured limits.
type Checker struct {
	limits Limits
}

// NewChecker creates a Checker with the given limits.
func NewChecker(limits Limits) *Checker {
	return &Checker{limits: limits}
}

// Input validates a full creation input. Title is required; all other
// fields are optional.
func (c *Checker) Input(in models.NoteInput) Result {
	var r Result
	c.title(&r, in.Title)
	c.content(&r, in.Content)
	c.category(&r, in.Category)
	c.tags(&r, in.Tags)
	c.color(&r, in.Color)
	return r
}

// Update validates only the fields supplied in a partial update.
func (c *Checker) Update(u models.NoteUpdate) Result {
	var r Result
	if u.Title != nil {
		c.title(&r, *u.Title)
	}
	if u.Content != nil {
		c.content(&r, *u.Content)
	}
	if u.Category != nil {
		c.category(&r, *u.Category)
	}
	if u.Tags != nil {
		c.tags(&r, *u.Tags)
	}
	if u.Color != nil {
		c.color(&r, *u.Color)
	}
	return r
}

func (c *Checker) title(r *Result, title string) {
	err := validation.Validate(strings.TrimSpace(title),
		validation.Required.Error("title is required"),
		validation.RuneLength(1, c.limits.MaxTitleLength).
			Error(fmt.Sprintf("title must be at most %d characters", c.limits.MaxTitleLength)),
	)
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

func (c *Checker) content(r *Result, content string) {
	if n := len([]rune(content)); n > c.limits.MaxNoteLength {
		r.Errors = append(r.Errors,
			fmt.Sprintf("content must be at most %d characters", c.limits.MaxNoteLength))
	} else if n > c.limits.MaxNoteLength*8/10 {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("content is over 80%% of the %d character limit", c.limits.MaxNoteLength))
	}
}

func (c *Checker) category(r *Result, category string) {
	if category == "" {
		return
	}
	err := validation.Validate(category,
		validation.RuneLength(1, c.limits.MaxCategoryLen).
			Error(fmt.Sprintf("category must be 1-%d characters", c.limits.MaxCategoryLen)),
		validation.Match(charsetRe).
			Error("category may only contain letters, digits, hyphens, underscores and spaces"),
	)
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

func (c *Checker) tags(r *Result, tags []string) {
	if len(tags) > c.limits.MaxTagsPerNote {
		r.Errors = append(r.Errors,
			fmt.Sprintf("at most %d tags are allowed", c.limits.MaxTagsPerNote))
	}
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		err := validation.Validate(tag,
			validation.Required.Error("tags must not be empty"),
			validation.RuneLength(1, c.limits.MaxTagLength).
				Error(fmt.Sprintf("tags must be 1-%d characters", c.limits.MaxTagLength)),
			validation.Match(charsetRe).
				Error("tags may only contain letters, digits, hyphens, underscores and spaces"),
		)
		if err != nil {
			r.Errors = append(r.Errors, err.Error())
			continue
		}
		// Duplicate detection is case-insensitive; duplicates warn, not block.
		lower := strings.ToLower(tag)
		if _, dup := seen[lower]; dup {
			r.Warnings = append(r.Warnings, fmt.Sprintf("duplicate tag %q", tag))
		}
		seen[lower] = struct{}{}
	}
}

func (c *Checker) color(r *Result, color string) {
	if color == "" {
		return
	}
	if !hexColorRe.MatchString(color) {
		r.Errors = append(r.Errors, "color must be a hex color like #RGB or #RRGGBB")
	}
}

// SanitizeText strips script blocks, remaining HTML tags, and
// surrounding whitespace from a single value.
func SanitizeText(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// SanitizeInput cleans every textual field of a creation input.
func SanitizeInput(in models.NoteInput) models.NoteInput {
	in.Title = SanitizeText(in.Title)
	in.Content = SanitizeText(in.Content)
	in.Category = SanitizeText(in.Category)
	in.Tags = sanitizeTags(in.Tags)
	return in
}

// SanitizeUpdate cleans every supplied textual field of a partial update.
func SanitizeUpdate(u models.NoteUpdate) models.NoteUpdate {
	if u.Title != nil {
		t := SanitizeText(*u.Title)
		u.Title = &t
	}
	if u.Content != nil {
		c := SanitizeText(*u.Content)
		u.Content = &c
	}
	if u.Category != nil {
		c := SanitizeText(*u.Category)
		u.Category = &c
	}
	if u.Tags != nil {
		t := sanitizeTags(*u.Tags)
		u.Tags = &t
	}
	return u
}

func sanitizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, SanitizeText(tag))
	}
	return out
}
