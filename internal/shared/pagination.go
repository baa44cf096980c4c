package shared

import "math"

// DefaultPageSize and MaxPageSize bound list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	perPage = ClampPageSize(perPage)
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset is the row offset for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ClampPageSize applies the default and maximum page sizes.
func ClampPageSize(perPage int) int {
	if perPage <= 0 {
		return DefaultPageSize
	}
	if perPage > MaxPageSize {
		return MaxPageSize
	}
	return perPage
}
