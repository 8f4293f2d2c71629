package usecase

import "math"

const (
	defaultPerPage = 20
	maxPerPage     = 100
	// maxPage keeps (Page-1)*PerPage from overflowing int.
	maxPage = math.MaxInt/maxPerPage + 1
)

// PageRequest is a 1-based page request. Out-of-range values are clamped.
type PageRequest struct {
	Page    int
	PerPage int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p PageRequest) offset() int { return (p.Page - 1) * p.PerPage }

type Paged[T any] struct {
	Data       []T
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

func newPaged[T any](data []T, p PageRequest, total int) *Paged[T] {
	if data == nil {
		data = []T{}
	}
	return &Paged[T]{
		Data:       data,
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: (total + p.PerPage - 1) / p.PerPage,
	}
}
