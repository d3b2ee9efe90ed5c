// Package pagination slices ordered result sets into fixed-size page windows.
package pagination

import (
	"context"
	"strconv"
	"strings"
)

// DefaultPageSize is the number of items on a full page.
const DefaultPageSize = 10

// Window describes which slice of an ordered sequence a page covers.
type Window struct {
	Number   int
	NumPages int
	Count    int64
	Offset   int
	Limit    int
}

// Page is one window of items plus navigation metadata.
type Page[T any] struct {
	Items              []T   `json:"items"`
	Number             int   `json:"number"`
	NumPages           int   `json:"num_pages"`
	Count              int64 `json:"count"`
	PageSize           int   `json:"page_size"`
	HasNext            bool  `json:"has_next"`
	HasPrevious        bool  `json:"has_previous"`
	NextPageNumber     int   `json:"next_page_number,omitempty"`
	PreviousPageNumber int   `json:"previous_page_number,omitempty"`
}

// Paginator computes page windows for a fixed page size.
type Paginator struct {
	PageSize int
}

// New returns a Paginator; a non-positive size falls back to DefaultPageSize.
func New(size int) Paginator {
	if size <= 0 {
		size = DefaultPageSize
	}
	return Paginator{PageSize: size}
}

// NumPages returns how many pages count items span. An empty sequence still
// has one (empty) page.
func (p Paginator) NumPages(count int64) int {
	if count <= 0 {
		return 1
	}
	size := int64(p.size())
	return int((count + size - 1) / size)
}

// Window resolves a raw page parameter against count. Missing or malformed
// values mean page 1; values below 1 or past the end mean the last page.
func (p Paginator) Window(count int64, raw string) Window {
	numPages := p.NumPages(count)
	number := ParseNumber(raw)
	if number < 1 || number > numPages {
		number = numPages
	}
	size := p.size()
	offset := (number - 1) * size
	limit := size
	if remaining := count - int64(offset); remaining < int64(limit) {
		limit = int(max(remaining, 0))
	}
	return Window{
		Number:   number,
		NumPages: numPages,
		Count:    count,
		Offset:   offset,
		Limit:    limit,
	}
}

func (p Paginator) size() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	return p.PageSize
}

// ParseNumber turns a page query value into a page number. Missing or
// malformed values give 1; integers are returned as is and clamped by Window.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

// Build assembles a Page from a resolved window and the items fetched for it.
func Build[T any](p Paginator, w Window, items []T) *Page[T] {
	if items == nil {
		items = []T{}
	}
	page := &Page[T]{
		Items:       items,
		Number:      w.Number,
		NumPages:    w.NumPages,
		Count:       w.Count,
		PageSize:    p.size(),
		HasNext:     w.Number < w.NumPages,
		HasPrevious: w.Number > 1,
	}
	if page.HasNext {
		page.NextPageNumber = w.Number + 1
	}
	if page.HasPrevious {
		page.PreviousPageNumber = w.Number - 1
	}
	return page
}

// CountFunc returns the total size of the sequence being paged.
type CountFunc func(ctx context.Context) (int64, error)

// FetchFunc loads the items of one window, in order.
type FetchFunc[T any] func(ctx context.Context, limit, offset int) ([]T, error)

// Fetch counts the sequence, resolves the requested window and loads only
// that window.
func Fetch[T any](ctx context.Context, p Paginator, raw string, count CountFunc, fetch FetchFunc[T]) (*Page[T], error) {
	total, err := count(ctx)
	if err != nil {
		return nil, err
	}
	w := p.Window(total, raw)
	if w.Limit == 0 {
		return Build[T](p, w, nil), nil
	}
	items, err := fetch(ctx, w.Limit, w.Offset)
	if err != nil {
		return nil, err
	}
	return Build(p, w, items), nil
}

// Map converts the items of p with f, keeping the navigation metadata.
func Map[T, U any](p *Page[T], f func(T) U) *Page[U] {
	if p == nil {
		return nil
	}
	items := make([]U, len(p.Items))
	for i, item := range p.Items {
		items[i] = f(item)
	}
	return &Page[U]{
		Items:              items,
		Number:             p.Number,
		NumPages:           p.NumPages,
		Count:              p.Count,
		PageSize:           p.PageSize,
		HasNext:            p.HasNext,
		HasPrevious:        p.HasPrevious,
		NextPageNumber:     p.NextPageNumber,
		PreviousPageNumber: p.PreviousPageNumber,
	}
}
