package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 24
	MaxPerPage     = 96
)

// Params holds the page window requested by the client.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first storefront grid page.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads page and per_page from the query string. Invalid or
// out-of-range values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 && v <= MaxPerPage {
		p.PerPage = v
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// Meta describes the window returned to the client.
type Meta struct {
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Slice returns the items in the requested window and its metadata. The
// returned slice aliases items.
func Slice[T any](items []T, p Params) ([]T, Meta) {
	if p.PerPage <= 0 {
		p = DefaultParams()
	}
	total := len(items)
	totalPages := total / p.PerPage
	if total%p.PerPage > 0 {
		totalPages++
	}

	meta := Meta{
		TotalCount: total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}

	start := (p.Page - 1) * p.PerPage
	if start >= total || start < 0 {
		return []T{}, meta
	}
	end := min(start+p.PerPage, total)
	return items[start:end], meta
}
