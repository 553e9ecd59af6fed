// Package auth implements authentication: JWT issuance and rotation,
// the request identity gate, and the account lifecycle endpoints.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/coursehub/coursehub/internal/user"
	"github.com/coursehub/coursehub/pkg/jwt"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	// VerificationTokenTTL bounds how long an email verification link works.
	VerificationTokenTTL = 24 * time.Hour
	// ResetTokenTTL bounds how long a password reset link works.
	ResetTokenTTL = time.Hour

	refreshTokenType = "refresh"
)

// ErrInvalidRefreshToken is returned for every refresh token failure
// mode. Malformed, expired and revoked tokens are indistinguishable to
// the caller.
var ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}

func (c AccessClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return jwt.ErrTokenExpired
	}
	if c.ID == "" {
		return jwt.ErrInvalidToken
	}
	return nil
}

// RefreshClaims is the payload of a refresh token. Type distinguishes it
// from access tokens so one cannot stand in for the other.
type RefreshClaims struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}

func (c RefreshClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return jwt.ErrTokenExpired
	}
	if c.ID == "" || c.Type != refreshTokenType {
		return jwt.ErrInvalidToken
	}
	return nil
}

// TokenPair is an issued access/refresh token set.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService issues and validates the JWT pair. Access and refresh
// tokens are signed with separate keys so leaking one secret does not
// compromise the other class.
type TokenService struct {
	access     *jwt.Service
	refresh    *jwt.Service
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// TokenConfig holds JWT configuration.
type TokenConfig struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
}

// NewTokenService creates a token service from config.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	access, err := jwt.New(cfg.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("auth: access token signer: %w", err)
	}
	refresh, err := jwt.New(cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("auth: refresh token signer: %w", err)
	}

	s := &TokenService{
		access:     access,
		refresh:    refresh,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = defaultAccessTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = defaultRefreshTTL
	}
	return s, nil
}

// IssueAccessToken signs a short-lived access token for the user.
func (s *TokenService) IssueAccessToken(u *user.User) (string, error) {
	now := time.Now()
	return s.access.Sign(AccessClaims{
		ID:        u.ID.Hex(),
		Role:      string(u.Role),
		ExpiresAt: now.Add(s.accessTTL).Unix(),
		IssuedAt:  now.Unix(),
	})
}

// IssueRefreshToken signs a long-lived refresh token for the user.
func (s *TokenService) IssueRefreshToken(u *user.User) (string, error) {
	now := time.Now()
	return s.refresh.Sign(RefreshClaims{
		ID:        u.ID.Hex(),
		Type:      refreshTokenType,
		ExpiresAt: now.Add(s.refreshTTL).Unix(),
		IssuedAt:  now.Unix(),
	})
}

// IssuePair signs a fresh access/refresh pair and records the refresh
// token on the user's active list, evicting beyond the cap.
func (s *TokenService) IssuePair(u *user.User) (TokenPair, error) {
	accessToken, err := s.IssueAccessToken(u)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := s.IssueRefreshToken(u)
	if err != nil {
		return TokenPair{}, err
	}
	u.AddRefreshToken(refreshToken, time.Now().UTC())
	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ParseAccess validates an access token and returns its claims.
func (s *TokenService) ParseAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := s.access.Parse(token, &claims); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

// ParseRefresh validates a refresh token's signature, expiry and type.
// Every failure collapses to ErrInvalidRefreshToken.
func (s *TokenService) ParseRefresh(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := s.refresh.Parse(token, &claims); err != nil {
		return RefreshClaims{}, ErrInvalidRefreshToken
	}
	return claims, nil
}

// Rotate exchanges an active refresh token for a new pair. The old token
// must be in the user's active list; it is removed and replaced by the
// new one, so the list never grows from a rotation.
func (s *TokenService) Rotate(u *user.User, oldToken string) (TokenPair, error) {
	if !u.HasRefreshToken(oldToken) {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	u.RemoveRefreshToken(oldToken)
	return s.IssuePair(u)
}

// NewActionToken generates a random opaque token for email verification
// and password reset links.
func NewActionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
