package course

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrNotFound is returned when a course does not exist.
var ErrNotFound = errors.New("course: not found")

// Filter narrows a course listing. Zero values mean no constraint.
type Filter struct {
	Category      string
	Level         Level
	Search        string
	InstructorID  bson.ObjectID
	PublishedOnly bool
	MinPrice      *float64
	MaxPrice      *float64
}

// Page controls listing pagination.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 10
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// Offset returns the number of documents to skip.
func (p Page) Offset() int64 {
	return int64((p.Number - 1) * p.Size)
}

// ListResult is one page of courses plus pagination metadata.
type ListResult struct {
	Courses    []Course `json:"courses"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int64    `json:"totalPages"`
}

// Stats summarizes the catalog for the admin dashboard.
type Stats struct {
	TotalCourses     int64            `json:"totalCourses"`
	PublishedCourses int64            `json:"publishedCourses"`
	TotalEnrollments int64            `json:"totalEnrollments"`
	AveragePrice     float64          `json:"averagePrice"`
	ByCategory       map[string]int64 `json:"byCategory"`
	ByLevel          map[string]int64 `json:"byLevel"`
}

// Repository persists courses.
type Repository interface {
	Create(ctx context.Context, c *Course) error
	Update(ctx context.Context, c *Course) error
	Delete(ctx context.Context, id bson.ObjectID) error
	FindByID(ctx context.Context, id bson.ObjectID) (*Course, error)
	List(ctx context.Context, filter Filter, page Page) (*ListResult, error)
	Stats(ctx context.Context) (*Stats, error)
}
