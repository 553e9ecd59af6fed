package course_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coursehub/coursehub/internal/course"
)

func TestCourseTotals(t *testing.T) {
	t.Parallel()

	c := &course.Course{
		Modules: []course.Module{
			{
				Title: "Basics",
				Lessons: []course.Lesson{
					{Title: "Intro", Duration: 10},
					{Title: "Setup", Duration: 25},
				},
			},
			{
				Title: "Advanced",
				Lessons: []course.Lesson{
					{Title: "Deep dive", Duration: 45},
				},
			},
		},
	}

	assert.Equal(t, 3, c.TotalLessons())
	assert.Equal(t, 80, c.TotalDuration())
}

func TestCourseTotalsEmpty(t *testing.T) {
	t.Parallel()

	c := &course.Course{}
	assert.Zero(t, c.TotalLessons())
	assert.Zero(t, c.TotalDuration())
}

func TestLevel(t *testing.T) {
	t.Parallel()

	assert.True(t, course.LevelBeginner.IsValid())
	assert.True(t, course.LevelIntermediate.IsValid())
	assert.True(t, course.LevelAdvanced.IsValid())
	assert.False(t, course.Level("Expert").IsValid())
}

func TestPageNormalize(t *testing.T) {
	t.Parallel()

	p := course.Page{Number: 0, Size: 0}.Normalize()
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 10, p.Size)

	p = course.Page{Number: 3, Size: 500}.Normalize()
	assert.Equal(t, 3, p.Number)
	assert.Equal(t, 100, p.Size)

	assert.Equal(t, int64(20), course.Page{Number: 3, Size: 10}.Offset())
}
