// Package user defines the user account model and its persistence.
package user

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

// Role grants a user a set of capabilities.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Roles lists every valid role value.
var Roles = []Role{RoleStudent, RoleInstructor, RoleAdmin}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role can manage courses.
func (r Role) IsStaff() bool {
	return r == RoleInstructor || r == RoleAdmin
}

const (
	// MaxRefreshTokens caps how many refresh tokens a user can hold at
	// once; the oldest is evicted when the cap is exceeded.
	MaxRefreshTokens = 5

	// RefreshTokenTTL is how long a stored refresh token stays valid.
	RefreshTokenTTL = 7 * 24 * time.Hour

	bcryptCost = 12
)

// RefreshToken is one entry in a user's active refresh token list.
type RefreshToken struct {
	Token     string    `bson:"token" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"-"`
}

// CourseRef records a user's relationship to a course.
type CourseRef struct {
	CourseID     bson.ObjectID `bson:"courseId" json:"courseId"`
	EnrolledAt   time.Time     `bson:"enrolledAt" json:"enrolledAt"`
	Progress     float64       `bson:"progress" json:"progress"`
	CompletedAt  *time.Time    `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	LastAccessed *time.Time    `bson:"lastAccessed,omitempty" json:"lastAccessed,omitempty"`
}

// Certificate records a completion certificate issued to a user.
type Certificate struct {
	CourseID bson.ObjectID `bson:"courseId" json:"courseId"`
	IssuedAt time.Time     `bson:"issuedAt" json:"issuedAt"`
	URL      string        `bson:"url" json:"url"`
}

// User is the account document. PasswordHash never serializes to JSON.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"passwordHash,omitempty" json:"-"`
	GoogleID     string        `bson:"googleId,omitempty" json:"-"`

	Avatar      string     `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Phone       string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Bio         string     `bson:"bio,omitempty" json:"bio,omitempty"`
	Gender      string     `bson:"gender,omitempty" json:"gender,omitempty"`
	Interests   []string   `bson:"interests,omitempty" json:"interests,omitempty"`
	Education   string     `bson:"education,omitempty" json:"education,omitempty"`
	Address     string     `bson:"address,omitempty" json:"address,omitempty"`
	DateOfBirth *time.Time `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`

	Role            Role `bson:"role" json:"role"`
	IsActive        bool `bson:"isActive" json:"isActive"`
	IsEmailVerified bool `bson:"isEmailVerified" json:"isEmailVerified"`

	VerificationToken   string     `bson:"verificationToken,omitempty" json:"-"`
	VerificationExpires *time.Time `bson:"verificationExpires,omitempty" json:"-"`
	ResetToken          string     `bson:"resetToken,omitempty" json:"-"`
	ResetExpires        *time.Time `bson:"resetExpires,omitempty" json:"-"`

	PurchasedCourses  []CourseRef   `bson:"purchasedCourses,omitempty" json:"purchasedCourses,omitempty"`
	RegisteredCourses []CourseRef   `bson:"registeredCourses,omitempty" json:"registeredCourses,omitempty"`
	CompletedCourses  []CourseRef   `bson:"completedCourses,omitempty" json:"completedCourses,omitempty"`
	Certificates      []Certificate `bson:"certificates,omitempty" json:"certificates,omitempty"`

	RefreshTokens []RefreshToken `bson:"refreshTokens,omitempty" json:"-"`
	LastLogin     *time.Time     `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// ComparePassword reports whether plain matches the stored hash. Users
// without a password hash (federated-only accounts) never match.
func (u *User) ComparePassword(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// HasPassword reports whether the account has local credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HasCredentials reports whether the account can authenticate at all.
// Every stored user must hold a password hash or a federated identity.
func (u *User) HasCredentials() bool {
	return u.PasswordHash != "" || u.GoogleID != ""
}

// AddRefreshToken appends a token and evicts the oldest entries beyond
// the cap, keeping the most recent MaxRefreshTokens.
func (u *User) AddRefreshToken(token string, now time.Time) {
	u.RefreshTokens = append(u.RefreshTokens, RefreshToken{Token: token, CreatedAt: now})
	if n := len(u.RefreshTokens); n > MaxRefreshTokens {
		u.RefreshTokens = u.RefreshTokens[n-MaxRefreshTokens:]
	}
}

// RemoveRefreshToken deletes the token from the active list. Removing a
// token that is not present is a no-op.
func (u *User) RemoveRefreshToken(token string) {
	kept := u.RefreshTokens[:0]
	for _, rt := range u.RefreshTokens {
		if rt.Token != token {
			kept = append(kept, rt)
		}
	}
	u.RefreshTokens = kept
}

// HasRefreshToken reports whether the token is in the active list.
func (u *User) HasRefreshToken(token string) bool {
	for _, rt := range u.RefreshTokens {
		if rt.Token == token {
			return true
		}
	}
	return false
}

// PruneExpiredTokens drops refresh tokens older than the TTL.
func (u *User) PruneExpiredTokens(now time.Time) {
	cutoff := now.Add(-RefreshTokenTTL)
	kept := u.RefreshTokens[:0]
	for _, rt := range u.RefreshTokens {
		if rt.CreatedAt.After(cutoff) {
			kept = append(kept, rt)
		}
	}
	u.RefreshTokens = kept
}

// Public is the sanitized view of a user returned by the API.
type Public struct {
	ID              bson.ObjectID `json:"id"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Role            Role          `json:"role"`
	Avatar          string        `json:"avatar,omitempty"`
	Phone           string        `json:"phone,omitempty"`
	Bio             string        `json:"bio,omitempty"`
	Gender          string        `json:"gender,omitempty"`
	Interests       []string      `json:"interests,omitempty"`
	Education       string        `json:"education,omitempty"`
	Address         string        `json:"address,omitempty"`
	DateOfBirth     *time.Time    `json:"dateOfBirth,omitempty"`
	IsActive        bool          `json:"isActive"`
	IsEmailVerified bool          `json:"isEmailVerified"`
	LastLogin       *time.Time    `json:"lastLogin,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// Public returns the API-safe projection of the user.
func (u *User) Public() Public {
	return Public{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Avatar:          u.Avatar,
		Phone:           u.Phone,
		Bio:             u.Bio,
		Gender:          u.Gender,
		Interests:       u.Interests,
		Education:       u.Education,
		Address:         u.Address,
		DateOfBirth:     u.DateOfBirth,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		LastLogin:       u.LastLogin,
		CreatedAt:       u.CreatedAt,
	}
}
