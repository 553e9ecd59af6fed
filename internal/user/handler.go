package user

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/coursehub/coursehub/pkg/binder"
	"github.com/coursehub/coursehub/pkg/file"
	"github.com/coursehub/coursehub/pkg/response"
	"github.com/coursehub/coursehub/pkg/validator"
)

const maxAvatarSize = 5 << 20 // 5 MB

// IdentityResolver reports the authenticated caller's user id. Satisfied
// by the auth package; declared here to avoid an import cycle.
type IdentityResolver func(r *http.Request) (string, bool)

// Handler serves the profile and dashboard endpoints.
type Handler struct {
	users    Repository
	storage  file.Storage
	identity IdentityResolver
	log      *slog.Logger
}

// NewHandler creates the user endpoint handler.
func NewHandler(users Repository, storage file.Storage, identity IdentityResolver, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{users: users, storage: storage, identity: identity, log: log}
}

// Routes mounts the user endpoints. The caller wraps them with the
// authentication middleware.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.UpdateProfile)
	r.Post("/profile/avatar", h.UploadAvatar)
	r.Post("/change-password", h.ChangePassword)
	r.Get("/dashboard", h.Dashboard)
	return r
}

func (h *Handler) currentUser(r *http.Request) (*User, error) {
	idHex, ok := h.identity(r)
	if !ok {
		return nil, response.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	id, err := bson.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, response.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	u, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		return nil, response.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return u, nil
}

// GetProfile returns the caller's own profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, "", map[string]any{"user": u.Public()})
}

type updateProfileRequest struct {
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	Bio         string   `json:"bio"`
	Gender      string   `json:"gender"`
	Interests   []string `json:"interests"`
	Education   string   `json:"education"`
	Address     string   `json:"address"`
	DateOfBirth string   `json:"dateOfBirth"`
}

// UpdateProfile updates the caller's editable profile fields. Email,
// role and account flags are not accepted here.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req updateProfileRequest
	if err := binder.Bind(r, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validator.Apply(
		validator.When(req.Name != "", validator.MinLen("name", req.Name, 2)),
		validator.When(req.Name != "", validator.MaxLen("name", req.Name, 100)),
		validator.When(req.Phone != "", validator.ValidPhone("phone", req.Phone)),
		validator.When(req.Bio != "", validator.MaxLen("bio", req.Bio, 500)),
		validator.When(req.Gender != "", validator.OneOf("gender", req.Gender, []string{"male", "female", "other", "prefer not to say"})),
	); err != nil {
		response.Error(w, err)
		return
	}

	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Phone != "" {
		u.Phone = req.Phone
	}
	if req.Bio != "" {
		u.Bio = req.Bio
	}
	if req.Gender != "" {
		u.Gender = req.Gender
	}
	if req.Interests != nil {
		u.Interests = req.Interests
	}
	if req.Education != "" {
		u.Education = req.Education
	}
	if req.Address != "" {
		u.Address = req.Address
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			response.FailValidation(w, validator.Errors{{
				Field:   "dateOfBirth",
				Message: "must be a valid date in YYYY-MM-DD format",
				Value:   req.DateOfBirth,
			}})
			return
		}
		u.DateOfBirth = &dob
	}

	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Profile updated successfully", map[string]any{"user": u.Public()})
}

// UploadAvatar stores a new profile image and replaces the previous one.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	f, fh, err := r.FormFile("avatar")
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Avatar file is required")
		return
	}
	defer f.Close()
	if fh.Size > maxAvatarSize {
		response.Fail(w, http.StatusBadRequest, "Avatar must be smaller than 5MB")
		return
	}
	if !file.AllowedType(fh.Header.Get("Content-Type"), file.ImageTypes) {
		response.Fail(w, http.StatusBadRequest, "Avatar must be an image")
		return
	}

	stored, err := h.storage.Save(r.Context(), fh, "avatars")
	if err != nil {
		h.log.Error("failed to store avatar", slog.Any("error", err))
		response.Error(w, err)
		return
	}

	u.Avatar = stored.URL
	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Avatar updated successfully", map[string]any{"avatar": stored.URL})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword replaces the caller's password and revokes every other
// session. Federated-only accounts without a local password are rejected.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var req changePasswordRequest
	if err := binder.Bind(r, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validator.Apply(
		validator.Required("currentPassword", req.CurrentPassword),
		validator.StrongPassword("newPassword", req.NewPassword),
	); err != nil {
		response.Error(w, err)
		return
	}

	if !u.HasPassword() {
		response.Fail(w, http.StatusBadRequest, "Password change is not available for this account")
		return
	}
	if !u.ComparePassword(req.CurrentPassword) {
		response.Fail(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	if err := u.SetPassword(req.NewPassword); err != nil {
		response.Error(w, err)
		return
	}
	u.RefreshTokens = nil
	if err := h.users.Update(r.Context(), u); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Password changed successfully", nil)
}

// Dashboard summarizes the caller's learning activity.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	var inProgress int
	var totalProgress float64
	for _, c := range u.RegisteredCourses {
		if c.CompletedAt == nil {
			inProgress++
		}
		totalProgress += c.Progress
	}
	var avgProgress float64
	if len(u.RegisteredCourses) > 0 {
		avgProgress = totalProgress / float64(len(u.RegisteredCourses))
	}

	response.OK(w, "", map[string]any{
		"stats": map[string]any{
			"purchasedCourses":  len(u.PurchasedCourses),
			"registeredCourses": len(u.RegisteredCourses),
			"completedCourses":  len(u.CompletedCourses),
			"inProgressCourses": inProgress,
			"certificates":      len(u.Certificates),
			"averageProgress":   avgProgress,
		},
		"recentCourses": recentCourses(u.RegisteredCourses, 5),
	})
}

// recentCourses returns up to n course refs ordered most recently
// accessed first.
func recentCourses(refs []CourseRef, n int) []CourseRef {
	sorted := make([]CourseRef, len(refs))
	copy(sorted, refs)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && lastTouched(sorted[j]).After(lastTouched(sorted[j-1])); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func lastTouched(c CourseRef) time.Time {
	if c.LastAccessed != nil {
		return *c.LastAccessed
	}
	return c.EnrolledAt
}
