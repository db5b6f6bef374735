package models

import (
	"math"
	"time"
)

// Sort orders accepted by order listings.
const (
	SortNewest = "NEWEST"
	SortOldest = "OLDEST"
)

// OrderFilter narrows an order listing. Zero values mean "no constraint".
type OrderFilter struct {
	UserID      int64
	Status      OrderStatus
	From        time.Time
	To          time.Time
	Page        int
	Size        int
	OldestFirst bool
}

// ReviewSort columns accepted by review listings.
const (
	ReviewSortCreatedAt = "created_at"
	ReviewSortRating    = "rating"
)

// ReviewPageRequest selects one page of a product's reviews.
type ReviewPageRequest struct {
	Page      int
	Size      int
	SortBy    string
	Ascending bool
}

// Page is one slice of a larger result set.
type Page[T any] struct {
	Content         []T   `json:"content"`
	PageNumber      int   `json:"page_number"`
	PageSize        int   `json:"page_size"`
	TotalPages      int   `json:"total_pages"`
	TotalElements   int64 `json:"total_elements"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
}

// PageOffset returns the row offset of page at size. It reports false when
// the offset does not fit in an int.
func PageOffset(page, size int) (int, bool) {
	if page < 0 || size < 0 {
		return 0, false
	}
	if size > 0 && page > math.MaxInt/size {
		return 0, false
	}
	return page * size, true
}

// NewPage builds the envelope for content fetched at page/size out of total.
func NewPage[T any](content []T, page, size int, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{
		Content:         content,
		PageNumber:      page,
		PageSize:        size,
		TotalPages:      totalPages,
		TotalElements:   total,
		HasNextPage:     page+1 < totalPages,
		HasPreviousPage: page > 0,
	}
}

// MapPage converts the content of a page, keeping its envelope.
func MapPage[T, R any](p Page[T], fn func(T) R) Page[R] {
	out := make([]R, 0, len(p.Content))
	for _, v := range p.Content {
		out = append(out, fn(v))
	}
	return Page[R]{
		Content:         out,
		PageNumber:      p.PageNumber,
		PageSize:        p.PageSize,
		TotalPages:      p.TotalPages,
		TotalElements:   p.TotalElements,
		HasNextPage:     p.HasNextPage,
		HasPreviousPage: p.HasPreviousPage,
	}
}
