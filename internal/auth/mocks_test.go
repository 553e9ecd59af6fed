package auth_test

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/coursehub/coursehub/internal/auth"
	"github.com/coursehub/coursehub/internal/user"
	"github.com/coursehub/coursehub/pkg/email"
)

// fakeUserRepo is an in-memory user.Repository for handler tests.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*user.User

	createErr error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[bson.ObjectID]*user.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return user.ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	r.users[u.ID] = clone(u)
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	r.users[u.ID] = clone(u)
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id bson.ObjectID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return clone(u), nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	return r.findBy(func(u *user.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) FindByGoogleID(_ context.Context, googleID string) (*user.User, error) {
	return r.findBy(func(u *user.User) bool { return u.GoogleID != "" && u.GoogleID == googleID })
}

func (r *fakeUserRepo) FindByVerificationToken(_ context.Context, token string) (*user.User, error) {
	return r.findBy(func(u *user.User) bool { return u.VerificationToken != "" && u.VerificationToken == token })
}

func (r *fakeUserRepo) FindByResetToken(_ context.Context, token string) (*user.User, error) {
	return r.findBy(func(u *user.User) bool { return u.ResetToken != "" && u.ResetToken == token })
}

func (r *fakeUserRepo) findBy(match func(*user.User) bool) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func clone(u *user.User) *user.User {
	cp := *u
	cp.RefreshTokens = append([]user.RefreshToken(nil), u.RefreshTokens...)
	return &cp
}

var _ user.Repository = (*fakeUserRepo)(nil)

// fakeSender records sent emails and optionally fails.
type fakeSender struct {
	mu      sync.Mutex
	sent    []email.SendParams
	sendErr error
}

func (s *fakeSender) Send(_ context.Context, params email.SendParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, params)
	return nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeSender) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}

var _ email.Sender = (*fakeSender)(nil)

func newTokenService() *auth.TokenService {
	svc, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  "access-secret-key-32-bytes-long!!!!",
		RefreshSecret: "refresh-secret-key-32-bytes-long!!!",
	})
	if err != nil {
		panic(err)
	}
	return svc
}
