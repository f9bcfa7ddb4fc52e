// Package pagination holds the page arithmetic shared by list endpoints.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
)

// Params is a validated page request.
type Params struct {
	Page    int
	PerPage int
}

// Offset returns the row offset for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Result is the envelope returned next to a page of items.
type Result struct {
	PrevPage   *string `json:"prev_page"`
	NextPage   *string `json:"next_page"`
	TotalPages int     `json:"total_pages"`
	TotalItems int64   `json:"total_items"`
}

// Parse validates raw query values. Empty values fall back to page 1 and defaultPerPage.
func Parse(rawPage, rawPerPage string, defaultPerPage, maxPerPage int) (Params, error) {
	p := Params{Page: 1, PerPage: defaultPerPage}

	if rawPage != "" {
		page, err := strconv.Atoi(rawPage)
		if err != nil || page < 1 {
			return p, fmt.Errorf("page must be an integer greater than or equal to 1")
		}
		p.Page = page
	}

	if rawPerPage != "" {
		perPage, err := strconv.Atoi(rawPerPage)
		if err != nil || perPage < 1 || perPage > maxPerPage {
			return p, fmt.Errorf("per_page must be an integer between 1 and %d", maxPerPage)
		}
		p.PerPage = perPage
	}

	return p, nil
}

// TotalPages is the number of pages needed for total items.
func TotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// Build computes prev/next links for path, carrying the extra query filters.
func Build(path string, p Params, total int64, extra url.Values) Result {
	totalPages := TotalPages(total, p.PerPage)
	result := Result{
		TotalPages: totalPages,
		TotalItems: total,
	}

	link := func(page int) *string {
		q := url.Values{}
		for k, vs := range extra {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(p.PerPage))
		s := path + "?" + q.Encode()
		return &s
	}

	if p.Page > 1 {
		result.PrevPage = link(p.Page - 1)
	}
	if p.Page < totalPages {
		result.NextPage = link(p.Page + 1)
	}
	return result
}
