package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// New returns normalized params: page starts at 1, per-page is clamped to
// [1, MaxPerPage] and falls back to DefaultPerPage.
func New(page, perPage int) Params {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// FromRequest reads page and per_page from the query string. Invalid
// values fall back to page 1 and defaultPerPage.
func FromRequest(r *http.Request, defaultPerPage int) Params {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))

	perPage := defaultPerPage
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		perPage = v
	}
	return New(page, perPage)
}

// TotalPages is ceil(total / perPage); zero items means zero pages.
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Result is a page of items plus the counters clients need to navigate.
type Result[T any] struct {
	Items      []T  `json:"items"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult builds a Result; nil items become an empty slice.
func NewResult[T any](items []T, totalCount int, p Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := TotalPages(totalCount, p.PerPage)
	return Result[T]{
		Items:      items,
		TotalCount: totalCount,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
