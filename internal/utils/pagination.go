package utils

import (
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type Pagination struct {
	Page     int
	PageSize int
}

// ParsePagination reads page and page_size, clamping invalid values.
func ParsePagination(q url.Values) Pagination {
	p := Pagination{Page: 1, PageSize: DefaultPageSize}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}

	if v, err := strconv.Atoi(q.Get("page_size")); err == nil {
		switch {
		case v < 1:
			p.PageSize = 1
		case v > MaxPageSize:
			p.PageSize = MaxPageSize
		default:
			p.PageSize = v
		}
	}

	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func (p Pagination) TotalPages(count int) int {
	if count == 0 {
		return 1
	}
	return (count + p.PageSize - 1) / p.PageSize
}

// PageLinks builds next/previous URLs for the current request.
func (p Pagination) PageLinks(u *url.URL, count int) (next, previous *string) {
	build := func(page int) *string {
		copied := *u
		q := copied.Query()
		q.Set("page", strconv.Itoa(page))
		copied.RawQuery = q.Encode()
		s := copied.String()
		return &s
	}

	if p.Page < p.TotalPages(count) {
		next = build(p.Page + 1)
	}
	if p.Page > 1 {
		previous = build(p.Page - 1)
	}
	return next, previous
}
