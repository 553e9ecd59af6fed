package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/coursehub/coursehub/internal/user"
	"github.com/coursehub/coursehub/pkg/jwt"
	"github.com/coursehub/coursehub/pkg/response"
)

// Gate authenticates requests and enforces role and verification
// requirements. Every authenticated request loads the user so that
// deactivation takes effect before the access token expires.
type Gate struct {
	tokens *TokenService
	users  user.Repository
	log    *slog.Logger
}

// NewGate creates the authentication gate.
func NewGate(tokens *TokenService, users user.Repository, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{tokens: tokens, users: users, log: log}
}

// Authenticate requires a valid bearer access token from an active user.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := g.resolve(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), identity)))
	})
}

// Optional attaches an identity when a valid token is present but never
// rejects the request. Used by endpoints with public and private views.
func (g *Gate) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, err := g.resolve(r); err == nil {
			r = r.WithContext(SetIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

// Authorize requires the authenticated identity to hold one of the given
// roles. Must run after Authenticate.
func (g *Gate) Authorize(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				response.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !slices.Contains(roles, identity.Role) {
				response.Fail(w, http.StatusForbidden, "Access denied - insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireVerified rejects identities that have not verified their email.
// Must run after Authenticate.
func (g *Gate) RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			response.Fail(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !identity.Verified {
			response.Fail(w, http.StatusForbidden, "Email verification required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) resolve(r *http.Request) (Identity, error) {
	token, err := jwt.BearerToken(r)
	if err != nil {
		return Identity{}, response.NewHTTPError(http.StatusUnauthorized, "Access token is required")
	}

	claims, err := g.tokens.ParseAccess(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, response.NewHTTPError(http.StatusUnauthorized, "Token expired")
		}
		return Identity{}, response.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	id, err := bson.ObjectIDFromHex(claims.ID)
	if err != nil {
		return Identity{}, response.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	u, err := g.users.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Identity{}, response.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}
		g.log.Error("failed to load user for authentication", slog.Any("error", err))
		return Identity{}, err
	}
	if !u.IsActive {
		return Identity{}, response.NewHTTPError(http.StatusUnauthorized, "Account is deactivated")
	}

	return Identity{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Verified: u.IsEmailVerified,
	}, nil
}
