package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination represents common pagination parameters. Page is zero based.
type Pagination struct {
	Page int `json:"page" form:"page"`
	Size int `json:"size" form:"size"`
}

// Normalize clamps page and size into their accepted ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	return p.Page * p.Size
}

// Page is one slice of a listing plus the unpaginated total.
type Page[T any] struct {
	Items []T
	Total int
}
