package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 200 {
		perPage = 200
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Bounds returns the half-open [start, end) window of the current page,
// clamped to Total.
func (p Pagination) Bounds() (int, int) {
	if p.PerPage <= 0 || p.Total <= 0 {
		return 0, 0
	}
	start := 0
	switch {
	case p.Page <= 1:
	case p.Page-1 > p.Total/p.PerPage:
		// past the last page; the product could overflow
		start = p.Total
	default:
		start = min((p.Page-1)*p.PerPage, p.Total)
	}
	end := start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}
