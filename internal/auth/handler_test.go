package auth_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub/internal/auth"
	"github.com/coursehub/coursehub/internal/user"
)

type testEnv struct {
	repo   *fakeUserRepo
	tokens *auth.TokenService
	sender *fakeSender
	server http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeUserRepo()
	tokens := newTokenService()
	sender := &fakeSender{}
	log := slog.New(slog.DiscardHandler)

	gate := auth.NewGate(tokens, repo, log)
	handler := auth.NewHandler(repo, tokens, sender, "https://app.test", log)

	return &testEnv{
		repo:   repo,
		tokens: tokens,
		sender: sender,
		server: handler.Routes(gate, nil),
	}
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, r)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeTokens(t *testing.T, data json.RawMessage) auth.TokenPair {
	t.Helper()

	var payload struct {
		Tokens auth.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload.Tokens
}

func TestRegister(t *testing.T) {
	t.Parallel()

	const body = `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`

	t.Run("creates the account and issues tokens", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/register", body, nil)

		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeEnvelope(t, rec)
		assert.True(t, resp.Success)

		tokens := decodeTokens(t, resp.Data)
		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)

		u, err := env.repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.RoleStudent, u.Role)
		assert.True(t, u.IsActive)
		assert.False(t, u.IsEmailVerified)
		assert.NotEmpty(t, u.VerificationToken)
		assert.NotContains(t, rec.Body.String(), u.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		require.Equal(t, http.StatusCreated, env.do("POST", "/register", body, nil).Code)

		rec := env.do("POST", "/register", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "User already exists with this email")
	})

	t.Run("aggregates every validation failure", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/register", `{"name":"","email":"bad","password":"short"}`, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Validation failed", resp.Message)

		fields := make([]string, 0, len(resp.Errors))
		for _, fe := range resp.Errors {
			fields = append(fields, fe.Field)
		}
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
	})

	t.Run("normalizes the email", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/register", `{"name":"Bob","email":"  Bob@Example.COM ","password":"Str0ng!pass"}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		_, err := env.repo.FindByEmail(context.Background(), "bob@example.com")
		assert.NoError(t, err)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	register := func(t *testing.T, env *testEnv) {
		t.Helper()
		rec := env.do("POST", "/register", `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		register(t, env)

		rec := env.do("POST", "/login", `{"email":"alice@example.com","password":"Str0ng!pass"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		tokens := decodeTokens(t, decodeEnvelope(t, rec).Data)
		assert.NotEmpty(t, tokens.RefreshToken)

		u, err := env.repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.NotNil(t, u.LastLogin)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		register(t, env)

		wrongPassword := env.do("POST", "/login", `{"email":"alice@example.com","password":"Wr0ng!pass"}`, nil)
		unknownEmail := env.do("POST", "/login", `{"email":"ghost@example.com","password":"Str0ng!pass"}`, nil)

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
		assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	})

	t.Run("deactivated account", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		register(t, env)

		u, err := env.repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		u.IsActive = false
		require.NoError(t, env.repo.Update(context.Background(), u))

		rec := env.do("POST", "/login", `{"email":"alice@example.com","password":"Str0ng!pass"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Account is deactivated")
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("rotation invalidates the presented token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/register", `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		tokens := decodeTokens(t, decodeEnvelope(t, rec).Data)

		// Signed tokens embed second-resolution timestamps; wait so the
		// rotated token differs from the original.
		time.Sleep(1100 * time.Millisecond)

		body := `{"refreshToken":"` + tokens.RefreshToken + `"}`
		first := env.do("POST", "/refresh-token", body, nil)
		require.Equal(t, http.StatusOK, first.Code)

		rotated := decodeTokens(t, decodeEnvelope(t, first).Data)
		assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

		second := env.do("POST", "/refresh-token", body, nil)
		assert.Equal(t, http.StatusUnauthorized, second.Code)
		assert.Contains(t, second.Body.String(), "Invalid refresh token")
	})

	t.Run("malformed token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/refresh-token", `{"refreshToken":"garbage"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/refresh-token", `{}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do("POST", "/register", `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	tokens := decodeTokens(t, decodeEnvelope(t, rec).Data)

	authed := map[string]string{"Authorization": "Bearer " + tokens.AccessToken}
	body := `{"refreshToken":"` + tokens.RefreshToken + `"}`

	first := env.do("POST", "/logout", body, authed)
	assert.Equal(t, http.StatusOK, first.Code)

	u, err := env.repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.False(t, u.HasRefreshToken(tokens.RefreshToken))

	// Logging out the same token again still succeeds.
	second := env.do("POST", "/logout", body, authed)
	assert.Equal(t, http.StatusOK, second.Code)

	t.Run("requires authentication", func(t *testing.T) {
		rec := env.do("POST", "/logout", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("without a token leaves other sessions alone", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		reg := env.do("POST", "/register", `{"name":"Bob","email":"bob@example.com","password":"Str0ng!pass"}`, nil)
		require.Equal(t, http.StatusCreated, reg.Code)
		tokens := decodeTokens(t, decodeEnvelope(t, reg).Data)

		out := env.do("POST", "/logout", `{}`, map[string]string{"Authorization": "Bearer " + tokens.AccessToken})
		require.Equal(t, http.StatusOK, out.Code)

		u, err := env.repo.FindByEmail(context.Background(), "bob@example.com")
		require.NoError(t, err)
		assert.True(t, u.HasRefreshToken(tokens.RefreshToken))
	})
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()

	t.Run("valid token verifies the account", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/register", `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		u, err := env.repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)

		verify := env.do("GET", "/verify-email/"+u.VerificationToken, "", nil)
		require.Equal(t, http.StatusOK, verify.Code)

		u, err = env.repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.True(t, u.IsEmailVerified)
		assert.Empty(t, u.VerificationToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("GET", "/verify-email/doesnotexist", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid or expired verification token")
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		expired := time.Now().Add(-time.Hour)
		u := newTestUser()
		u.VerificationToken = "expired-token"
		u.VerificationExpires = &expired
		require.NoError(t, env.repo.Create(context.Background(), u))

		rec := env.do("GET", "/verify-email/expired-token", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestForgotPassword(t *testing.T) {
	t.Parallel()

	seed := func(t *testing.T, env *testEnv) {
		t.Helper()
		rec := env.do("POST", "/register", `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	t.Run("issues a reset token and sends the email", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		seed(t, env)

		rec := env.do("POST", "/forgot-password", `{"email":"alice@example.com"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		u, err := env.repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, u.ResetToken)
		assert.NotNil(t, u.ResetExpires)
		assert.GreaterOrEqual(t, env.sender.sentCount(), 1)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/forgot-password", `{"email":"ghost@example.com"}`, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "No user found with this email")
	})

	t.Run("rolls back the token when the email fails to send", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		seed(t, env)
		env.sender.failWith(assert.AnError)

		rec := env.do("POST", "/forgot-password", `{"email":"alice@example.com"}`, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		u, err := env.repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Empty(t, u.ResetToken)
		assert.Nil(t, u.ResetExpires)
	})
}

func TestResetPassword(t *testing.T) {
	t.Parallel()

	t.Run("sets the new password and revokes sessions", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/register", `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		require.Equal(t, http.StatusOK, env.do("POST", "/forgot-password", `{"email":"alice@example.com"}`, nil).Code)

		u, err := env.repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)

		reset := env.do("POST", "/reset-password/"+u.ResetToken, `{"password":"N3w!password"}`, nil)
		require.Equal(t, http.StatusOK, reset.Code)

		u, err = env.repo.FindByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.True(t, u.ComparePassword("N3w!password"))
		assert.False(t, u.ComparePassword("Str0ng!pass"))
		assert.Empty(t, u.ResetToken)
		assert.Empty(t, u.RefreshTokens)
	})

	t.Run("weak replacement password", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/reset-password/some-token", `{"password":"weak"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Validation failed")
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/reset-password/unknown", `{"password":"N3w!password"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid or expired reset token")
	})
}

func TestGoogleLogin(t *testing.T) {
	t.Parallel()

	const body = `{"googleId":"g-123","email":"alice@example.com","name":"Alice"}`

	t.Run("creates a verified account on first login", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/google", body, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		u, err := env.repo.FindByGoogleID(context.Background(), "g-123")
		require.NoError(t, err)
		assert.True(t, u.IsEmailVerified)
		assert.False(t, u.HasPassword())
	})

	t.Run("links to an existing account with the same email", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/register", `{"name":"Alice","email":"alice@example.com","password":"Str0ng!pass"}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		google := env.do("POST", "/google", `{"googleId":"g-123","email":"alice@example.com","name":"Alice","avatar":"https://lh3.test/photo.jpg"}`, nil)
		require.Equal(t, http.StatusOK, google.Code)

		u, err := env.repo.FindByGoogleID(context.Background(), "g-123")
		require.NoError(t, err)
		assert.True(t, u.HasPassword())
		assert.True(t, u.IsEmailVerified)
		assert.Equal(t, "https://lh3.test/photo.jpg", u.Avatar)
	})

	t.Run("linking keeps an existing avatar", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		u := newTestUser()
		u.Avatar = "/uploads/avatars/own.png"
		require.NoError(t, env.repo.Create(context.Background(), u))

		google := env.do("POST", "/google", `{"googleId":"g-456","email":"`+u.Email+`","name":"Alice","avatar":"https://lh3.test/photo.jpg"}`, nil)
		require.Equal(t, http.StatusOK, google.Code)

		linked, err := env.repo.FindByGoogleID(context.Background(), "g-456")
		require.NoError(t, err)
		assert.Equal(t, "/uploads/avatars/own.png", linked.Avatar)
	})

	t.Run("missing google id", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do("POST", "/google", `{"email":"a@b.co","name":"A"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
