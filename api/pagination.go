package api

import (
	"net/url"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Page is one page of a list response.
type Page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Pages   int `json:"pages"`
}

// HasMore reports whether pages follow this one.
func (p *Page[T]) HasMore() bool {
	return p.Page < p.Pages
}

// ListParams selects a page and filters a list call. Zero Page and PerPage
// fall back to the backend defaults (page 1, 20 per page); PerPage is capped
// at 100.
type ListParams struct {
	Page    int
	PerPage int
	Filters map[string]string
}

// query encodes the params. Filters with empty values are dropped.
func (p ListParams) query() url.Values {
	page, perPage := normalizePaging(p.Page, p.PerPage)
	q := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	for k, v := range p.Filters {
		if v != "" && k != "page" && k != "per_page" {
			q[k] = []string{v}
		}
	}
	return q
}

func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
