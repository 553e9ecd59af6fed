package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/coursehub/coursehub/internal/user"
	"github.com/coursehub/coursehub/pkg/binder"
	"github.com/coursehub/coursehub/pkg/email"
	"github.com/coursehub/coursehub/pkg/response"
	"github.com/coursehub/coursehub/pkg/sanitizer"
	"github.com/coursehub/coursehub/pkg/validator"
)

// Handler serves the authentication endpoints.
type Handler struct {
	users   user.Repository
	tokens  *TokenService
	mailer  email.Sender
	log     *slog.Logger
	baseURL string
}

// NewHandler creates the auth endpoint handler. baseURL is the public
// frontend origin used to build verification and reset links.
func NewHandler(users user.Repository, tokens *TokenService, mailer email.Sender, baseURL string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{users: users, tokens: tokens, mailer: mailer, baseURL: baseURL, log: log}
}

// Routes mounts the auth endpoints on a router. credentialLimiter, when
// non-nil, wraps the credential-guessing surface (login and register)
// with a stricter rate limit than the rest of the group.
func (h *Handler) Routes(gate *Gate, credentialLimiter func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		if credentialLimiter != nil {
			r.Use(credentialLimiter)
		}
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
	r.Post("/google", h.GoogleLogin)
	r.Post("/refresh-token", h.Refresh)
	r.Get("/verify-email/{token}", h.VerifyEmail)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password/{token}", h.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(gate.Authenticate)
		r.Post("/logout", h.Logout)
	})
	return r
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new student account and fires off the verification
// email in the background.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := binder.Bind(r, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)

	if err := validator.Apply(
		validator.Required("name", req.Name),
		validator.MinLen("name", req.Name, 2),
		validator.MaxLen("name", req.Name, 100),
		validator.ValidEmail("email", req.Email),
		validator.StrongPassword("password", req.Password),
	); err != nil {
		response.Error(w, err)
		return
	}

	u := &user.User{
		Name:     req.Name,
		Email:    req.Email,
		Role:     user.RoleStudent,
		IsActive: true,
	}
	if err := u.SetPassword(req.Password); err != nil {
		response.Error(w, err)
		return
	}

	token, err := NewActionToken()
	if err != nil {
		response.Error(w, err)
		return
	}
	expires := time.Now().UTC().Add(VerificationTokenTTL)
	u.VerificationToken = token
	u.VerificationExpires = &expires

	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			response.Fail(w, http.StatusBadRequest, "User already exists with this email")
			return
		}
		h.log.Error("failed to create user", slog.Any("error", err))
		response.Error(w, err)
		return
	}

	pair, err := h.tokens.IssuePair(u)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	// Delivery failures must not fail the registration.
	go h.sendVerificationEmail(context.WithoutCancel(r.Context()), u, token)

	response.Created(w, "User registered successfully", map[string]any{
		"user":   u.Public(),
		"tokens": pair,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates local credentials and issues a fresh token pair.
// Wrong email and wrong password are indistinguishable in the response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := binder.Bind(r, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)

	if err := validator.Apply(
		validator.ValidEmail("email", req.Email),
		validator.Required("password", req.Password),
	); err != nil {
		response.Error(w, err)
		return
	}

	u, err := h.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			response.Fail(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		response.Error(w, err)
		return
	}
	if !u.ComparePassword(req.Password) {
		response.Fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !u.IsActive {
		response.Fail(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	now := time.Now().UTC()
	u.LastLogin = &now
	u.PruneExpiredTokens(now)

	pair, err := h.tokens.IssuePair(u)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Login successful", map[string]any{
		"user":   u.Public(),
		"tokens": pair,
	})
}

type googleLoginRequest struct {
	GoogleID string `json:"googleId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

// GoogleLogin signs a user in with a verified Google identity, creating
// the account on first login or linking the Google ID to an existing
// account with the same email.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := binder.Bind(r, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)

	if err := validator.Apply(
		validator.Required("googleId", req.GoogleID),
		validator.ValidEmail("email", req.Email),
		validator.Required("name", req.Name),
	); err != nil {
		response.Error(w, err)
		return
	}

	u, err := h.users.FindByGoogleID(r.Context(), req.GoogleID)
	if errors.Is(err, user.ErrNotFound) {
		u, err = h.users.FindByEmail(r.Context(), req.Email)
		switch {
		case err == nil:
			u.GoogleID = req.GoogleID
			// Google accounts come with a verified email.
			u.IsEmailVerified = true
			if u.Avatar == "" {
				u.Avatar = req.Avatar
			}
		case errors.Is(err, user.ErrNotFound):
			u = &user.User{
				Name:            req.Name,
				Email:           req.Email,
				GoogleID:        req.GoogleID,
				Avatar:          req.Avatar,
				Role:            user.RoleStudent,
				IsActive:        true,
				IsEmailVerified: true,
			}
			if err := h.users.Create(r.Context(), u); err != nil {
				response.Error(w, err)
				return
			}
			err = nil
		}
	}
	if err != nil {
		response.Error(w, err)
		return
	}
	if !u.IsActive {
		response.Fail(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	now := time.Now().UTC()
	u.LastLogin = &now
	u.PruneExpiredTokens(now)

	pair, err := h.tokens.IssuePair(u)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Login successful", map[string]any{
		"user":   u.Public(),
		"tokens": pair,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates a refresh token: the presented token is invalidated
// and a new pair is issued. Any failure returns the same 401 so callers
// cannot probe which check rejected the token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := binder.Bind(r, &req); err != nil || req.RefreshToken == "" {
		response.Fail(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	claims, err := h.tokens.ParseRefresh(req.RefreshToken)
	if err != nil {
		response.Fail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	id, err := bson.ObjectIDFromHex(claims.ID)
	if err != nil {
		response.Fail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	u, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		response.Fail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if !u.IsActive {
		response.Fail(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	u.PruneExpiredTokens(time.Now().UTC())

	pair, err := h.tokens.Rotate(u, req.RefreshToken)
	if err != nil {
		response.Fail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Token refreshed successfully", map[string]any{"tokens": pair})
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout removes the presented refresh token from the active list.
// Idempotent: logging out an already-revoked or absent token still
// succeeds and touches nothing.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req logoutRequest
	_ = binder.Bind(r, &req)

	if req.RefreshToken != "" {
		u, err := h.users.FindByID(r.Context(), identity.ID)
		if err != nil {
			response.Error(w, err)
			return
		}
		u.RemoveRefreshToken(req.RefreshToken)
		if err := h.users.Update(r.Context(), u); err != nil {
			response.Error(w, err)
			return
		}
	}

	response.OK(w, "Logged out successfully", nil)
}

// VerifyEmail confirms an email address from a verification link.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		response.Fail(w, http.StatusBadRequest, "Verification token is required")
		return
	}

	u, err := h.users.FindByVerificationToken(r.Context(), token)
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}
	if u.VerificationExpires == nil || time.Now().After(*u.VerificationExpires) {
		response.Fail(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}

	u.IsEmailVerified = true
	u.VerificationToken = ""
	u.VerificationExpires = nil
	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Email verified successfully", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a password reset token and emails the reset
// link. If the email cannot be sent the token is rolled back so a stale
// token never lingers on the account.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := binder.Bind(r, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = sanitizer.NormalizeEmail(req.Email)

	if err := validator.Apply(validator.ValidEmail("email", req.Email)); err != nil {
		response.Error(w, err)
		return
	}

	u, err := h.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			response.Fail(w, http.StatusNotFound, "No user found with this email")
			return
		}
		response.Error(w, err)
		return
	}

	token, err := NewActionToken()
	if err != nil {
		response.Error(w, err)
		return
	}
	expires := time.Now().UTC().Add(ResetTokenTTL)
	u.ResetToken = token
	u.ResetExpires = &expires
	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", h.baseURL, token)
	params, err := email.PasswordResetEmail(u.Email, u.Name, resetURL)
	if err == nil {
		err = h.mailer.Send(r.Context(), params)
	}
	if err != nil {
		h.log.Error("failed to send password reset email", slog.Any("error", err))
		u.ResetToken = ""
		u.ResetExpires = nil
		if rbErr := h.users.Update(r.Context(), u); rbErr != nil {
			h.log.Error("failed to roll back reset token", slog.Any("error", rbErr))
		}
		response.Fail(w, http.StatusInternalServerError, "Failed to send password reset email")
		return
	}

	response.OK(w, "Password reset email sent", nil)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword sets a new password from a reset link and revokes every
// active session.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		response.Fail(w, http.StatusBadRequest, "Reset token is required")
		return
	}

	var req resetPasswordRequest
	if err := binder.Bind(r, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validator.Apply(validator.StrongPassword("password", req.Password)); err != nil {
		response.Error(w, err)
		return
	}

	u, err := h.users.FindByResetToken(r.Context(), token)
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	if u.ResetExpires == nil || time.Now().After(*u.ResetExpires) {
		response.Fail(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	if err := u.SetPassword(req.Password); err != nil {
		response.Error(w, err)
		return
	}
	u.ResetToken = ""
	u.ResetExpires = nil
	u.RefreshTokens = nil
	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Password reset successful", nil)
}

func (h *Handler) sendVerificationEmail(ctx context.Context, u *user.User, token string) {
	verifyURL := fmt.Sprintf("%s/verify-email/%s", h.baseURL, token)
	params, err := email.VerificationEmail(u.Email, u.Name, verifyURL)
	if err == nil {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		err = h.mailer.Send(ctx, params)
	}
	if err != nil {
		h.log.Error("failed to send verification email",
			slog.String("email", u.Email),
			slog.Any("error", err),
		)
	}
}
