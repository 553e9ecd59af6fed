package course_test

import (
	"context"
	"mime/multipart"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/coursehub/coursehub/internal/course"
	"github.com/coursehub/coursehub/internal/user"
	"github.com/coursehub/coursehub/pkg/file"
)

// fakeCourseRepo is an in-memory course.Repository for handler tests.
type fakeCourseRepo struct {
	mu      sync.Mutex
	courses map[bson.ObjectID]*course.Course
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: make(map[bson.ObjectID]*course.Course)}
}

func (r *fakeCourseRepo) Create(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	cp := *c
	r.courses[c.ID] = &cp
	return nil
}

func (r *fakeCourseRepo) Update(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[c.ID]; !ok {
		return course.ErrNotFound
	}
	cp := *c
	r.courses[c.ID] = &cp
	return nil
}

func (r *fakeCourseRepo) Delete(_ context.Context, id bson.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *fakeCourseRepo) FindByID(_ context.Context, id bson.ObjectID) (*course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.courses[id]
	if !ok {
		return nil, course.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCourseRepo) List(_ context.Context, filter course.Filter, page course.Page) (*course.ListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page = page.Normalize()
	matched := []course.Course{}
	for _, c := range r.courses {
		if filter.PublishedOnly && !c.IsPublished {
			continue
		}
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if filter.Level != "" && c.Level != filter.Level {
			continue
		}
		matched = append(matched, *c)
	}

	return &course.ListResult{
		Courses:  matched,
		Total:    int64(len(matched)),
		Page:     page.Number,
		PageSize: page.Size,
	}, nil
}

func (r *fakeCourseRepo) Stats(_ context.Context) (*course.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &course.Stats{
		ByCategory: map[string]int64{},
		ByLevel:    map[string]int64{},
	}
	for _, c := range r.courses {
		stats.TotalCourses++
		if c.IsPublished {
			stats.PublishedCourses++
		}
		stats.ByCategory[c.Category]++
		stats.ByLevel[string(c.Level)]++
	}
	return stats, nil
}

var _ course.Repository = (*fakeCourseRepo)(nil)

// fakeStorage records saves and deletes without touching disk.
type fakeStorage struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
}

func (s *fakeStorage) Save(_ context.Context, fh *multipart.FileHeader, dir string) (*file.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := dir + "/" + fh.Filename
	s.saved = append(s.saved, path)
	return &file.File{Path: path, URL: "/uploads/" + path, Size: fh.Size}, nil
}

func (s *fakeStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted = append(s.deleted, path)
	return nil
}

func (s *fakeStorage) URL(path string) string { return "/uploads/" + path }

var _ file.Storage = (*fakeStorage)(nil)

// fakeUserRepo backs the authentication gate in course handler tests.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[bson.ObjectID]*user.User)}
}

func (r *fakeUserRepo) add(u *user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	r.add(u)
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *user.User) error {
	r.add(u)
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id bson.ObjectID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByEmail(context.Context, string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) FindByGoogleID(context.Context, string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) FindByVerificationToken(context.Context, string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) FindByResetToken(context.Context, string) (*user.User, error) {
	return nil, user.ErrNotFound
}

var _ user.Repository = (*fakeUserRepo)(nil)
