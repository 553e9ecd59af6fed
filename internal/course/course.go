// Package course defines the course catalog model and endpoints.
package course

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Level is a course difficulty level.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// Levels lists every valid difficulty level.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// IsValid reports whether l is a known level.
func (l Level) IsValid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Lesson is a single unit of content inside a module.
type Lesson struct {
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	VideoURL    string `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	PDFURL      string `bson:"pdfUrl,omitempty" json:"pdfUrl,omitempty"`
	Notes       string `bson:"notes,omitempty" json:"notes,omitempty"`
	Duration    int    `bson:"duration" json:"duration"` // minutes
	IsPreview   bool   `bson:"isPreview" json:"isPreview"`
	Order       int    `bson:"order" json:"order"`
}

// Module groups lessons within a course.
type Module struct {
	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Lessons     []Lesson `bson:"lessons,omitempty" json:"lessons,omitempty"`
	Order       int      `bson:"order" json:"order"`
}

// Course is a catalog entry with its embedded curriculum.
type Course struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string        `bson:"title" json:"title"`
	Description  string        `bson:"description" json:"description"`
	Category     string        `bson:"category" json:"category"`
	Level        Level         `bson:"level" json:"level"`
	Price        float64       `bson:"price" json:"price"`
	Thumbnail    string        `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	// ThumbnailPath is the storage path behind Thumbnail, kept so the
	// object can be deleted with the course.
	ThumbnailPath string `bson:"thumbnailPath,omitempty" json:"-"`
	Tags         []string      `bson:"tags,omitempty" json:"tags,omitempty"`
	Modules      []Module      `bson:"modules" json:"modules"`
	InstructorID bson.ObjectID `bson:"instructorId" json:"instructorId"`
	IsPublished  bool          `bson:"isPublished" json:"isPublished"`
	Enrollments  int           `bson:"enrollments" json:"enrollments"`
	Rating       float64       `bson:"rating" json:"rating"`
	RatingCount  int           `bson:"ratingCount" json:"ratingCount"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// TotalLessons counts lessons across all modules.
func (c *Course) TotalLessons() int {
	var n int
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// TotalDuration sums lesson durations in minutes.
func (c *Course) TotalDuration() int {
	var minutes int
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			minutes += l.Duration
		}
	}
	return minutes
}
