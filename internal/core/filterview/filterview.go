// Package filterview derives the visible page of a catalog for a filter state.
package filterview

import (
	"strings"
	"unicode"

	"github.com/niksmo/storefront/internal/core/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Apply filters and paginates products. It never mutates its input.
//
// A page beyond the last one yields an empty product slice.
func Apply(products []domain.Product, state domain.FilterState) domain.ProductPage {
	state = state.Normalize()
	m := newMatcher(state.Search, state.Category)

	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if m.match(p) {
			filtered = append(filtered, p)
		}
	}

	total := len(filtered)
	totalPages := domain.TotalPages(total, state.PageSize)

	// Bounds are checked in pages so a huge page number cannot overflow.
	start, end := total, total
	if state.Page <= totalPages {
		start = (state.Page - 1) * state.PageSize
		end = start + min(state.PageSize, total-start)
	}

	visible := make([]domain.Product, end-start)
	for i, p := range filtered[start:end] {
		visible[i] = p.Clone()
	}

	return domain.ProductPage{
		Products:   visible,
		Total:      total,
		Page:       state.Page,
		PageSize:   state.PageSize,
		TotalPages: totalPages,
		HasPrev:    state.Page > 1,
		HasNext:    state.Page < totalPages,
	}
}

type matcher struct {
	term     string
	category string
}

func newMatcher(search, category string) matcher {
	return matcher{term: fold(strings.TrimSpace(search)), category: category}
}

// match compares the term against name and description only.
// Category is compared by exact equality.
func (m matcher) match(p domain.Product) bool {
	if m.category != "" && p.Category != m.category {
		return false
	}
	if m.term == "" {
		return true
	}
	return strings.Contains(fold(p.Name), m.term) ||
		strings.Contains(fold(p.Description), m.term)
}

// fold lowercases s and strips combining marks, so "Éclair" matches "eclair".
func fold(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		cases.Fold(),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
