// Package notelist filters, searches and orders a user's notes for display.
package notelist

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/notekeep/internal/models"
)

// AllCategories disables the category filter.
const AllCategories = "All"

// Order is the direction notes are sorted by creation time.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// ParseOrder accepts "asc" or "desc" (case-insensitive). An empty string
// means Descending, newest first.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Descending):
		return Descending, nil
	case string(Ascending):
		return Ascending, nil
	default:
		return "", fmt.Errorf("notelist: unknown order %q", s)
	}
}

// Filter selects and orders notes.
type Filter struct {
	Category string // exact match; "" or AllCategories keeps every note
	Query    string // whitespace-separated words, any of which must match
	Order    Order
}

// Apply returns the notes matching f sorted by DateAdded. The input slice
// is not modified and notes with equal timestamps keep their relative order.
func Apply(notes []models.Note, f Filter) []models.Note {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(f.Query)))
	byCategory := f.Category != "" && f.Category != AllCategories

	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if byCategory && n.Category != f.Category {
			continue
		}
		if len(words) > 0 && !matchesAny(n, words) {
			continue
		}
		out = append(out, n)
	}

	desc := f.Order != Ascending
	slices.SortStableFunc(out, func(a, b models.Note) int {
		c := a.DateAdded.Compare(b.DateAdded)
		if desc {
			return -c
		}
		return c
	})
	return out
}

// matchesAny reports whether any word is a substring of the note's
// lowercased title and content.
func matchesAny(n models.Note, words []string) bool {
	text := strings.ToLower(n.Title + " " + n.Content)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
