// Package paging holds the zero-based page request and page result shared by
// every listing query.
package paging

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultSize = 20
	MaxSize     = 100
	// MaxPage keeps Page*Size well inside int64 for any valid size.
	MaxPage     = math.MaxInt32
)

// Request selects one page of a result set. Page is zero-based.
type Request struct {
	Page int
	Size int
}

// New normalizes page and size: negative pages become 0, pages past MaxPage
// are clamped to it, sizes outside (0, MaxSize] fall back to DefaultSize.
func New(page, size int) Request {
	page = min(max(page, 0), MaxPage)
	if size <= 0 || size > MaxSize {
		size = DefaultSize
	}
	return Request{Page: page, Size: size}
}

// FromQuery reads page and page_size from query parameters.
func FromQuery(q url.Values) Request {
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return New(page, size)
}

func (r Request) Offset() int {
	return r.Page * r.Size
}

func (r Request) Limit() int {
	return r.Size
}

// Page is one page of items plus the total number of matches.
type Page[T any] struct {
	Items []T
	Total int
	Req   Request
}

func NewPage[T any](items []T, total int, req Request) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Req: req}
}

func (p Page[T]) TotalPages() int {
	if p.Req.Size <= 0 {
		return 0
	}
	return (p.Total + p.Req.Size - 1) / p.Req.Size
}

// Meta is the pagination block of a listing response.
func (p Page[T]) Meta() map[string]any {
	return map[string]any{
		"page":        p.Req.Page,
		"page_size":   p.Req.Size,
		"total":       p.Total,
		"total_pages": p.TotalPages(),
	}
}

// Map converts every item of a page, keeping its totals.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, fn(it))
	}
	return Page[U]{Items: out, Total: p.Total, Req: p.Req}
}

// Slice cuts the requested page out of an in-memory result set.
func Slice[T any](all []T, req Request) []T {
	start := req.Offset()
	if start < 0 || start >= len(all) {
		return []T{}
	}
	end := min(start+req.Size, len(all))
	return append([]T{}, all[start:end]...)
}
