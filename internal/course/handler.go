package course

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/coursehub/coursehub/internal/auth"
	"github.com/coursehub/coursehub/internal/user"
	"github.com/coursehub/coursehub/pkg/binder"
	"github.com/coursehub/coursehub/pkg/file"
	"github.com/coursehub/coursehub/pkg/response"
	"github.com/coursehub/coursehub/pkg/validator"
)

const maxThumbnailSize = 10 << 20 // 10 MB

// Handler serves the course catalog endpoints.
type Handler struct {
	courses Repository
	storage file.Storage
	log     *slog.Logger
}

// NewHandler creates the course endpoint handler.
func NewHandler(courses Repository, storage file.Storage, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{courses: courses, storage: storage, log: log}
}

// Routes mounts the course endpoints. Listing and detail are public with
// an optional identity; management requires instructor or admin roles.
func (h *Handler) Routes(gate *auth.Gate) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(gate.Optional)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
	})

	r.Group(func(r chi.Router) {
		r.Use(gate.Authenticate)
		r.Use(gate.Authorize(user.RoleInstructor, user.RoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/{id}/publish", h.TogglePublish)
		r.Post("/{id}/thumbnail", h.UploadThumbnail)
		r.Get("/stats", h.Stats)
	})

	return r
}

// List returns a filtered, paginated course listing. Unpublished courses
// are visible only to staff.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := Filter{
		Category:      q.Get("category"),
		Level:         Level(q.Get("level")),
		Search:        q.Get("search"),
		PublishedOnly: true,
	}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && identity.Role.IsStaff() {
		filter.PublishedOnly = false
	}
	if v := q.Get("minPrice"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &p
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &p
		}
	}

	page := Page{}
	page.Number, _ = strconv.Atoi(q.Get("page"))
	page.Size, _ = strconv.Atoi(q.Get("limit"))

	result, err := h.courses.List(r.Context(), filter, page)
	if err != nil {
		h.log.Error("failed to list courses", slog.Any("error", err))
		response.Error(w, err)
		return
	}

	response.OK(w, "", result)
}

// Get returns a single course. Unpublished courses 404 for non-staff.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCourse(w, r)
	if !ok {
		return
	}

	if !c.IsPublished {
		identity, authed := auth.IdentityFromContext(r.Context())
		if !authed || !identity.Role.IsStaff() {
			response.Fail(w, http.StatusNotFound, "Course not found")
			return
		}
	}

	response.OK(w, "", map[string]any{
		"course":        c,
		"totalLessons":  c.TotalLessons(),
		"totalDuration": c.TotalDuration(),
	})
}

type courseRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Level       string   `json:"level"`
	Price       float64  `json:"price"`
	Tags        []string `json:"tags"`
	Modules     []Module `json:"modules"`
}

func (req courseRequest) validate() error {
	return validator.Apply(
		validator.Required("title", req.Title),
		validator.MinLen("title", req.Title, 3),
		validator.MaxLen("title", req.Title, 200),
		validator.Required("description", req.Description),
		validator.MinLen("description", req.Description, 10),
		validator.MaxLen("description", req.Description, 1000),
		validator.Required("category", req.Category),
		validator.OneOf("level", Level(req.Level), Levels),
		validator.NonNegative("price", req.Price),
		validator.NotEmptySlice("modules", req.Modules),
	)
}

// Create adds a new unpublished course owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req courseRequest
	if err := binder.Bind(r, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		response.Error(w, err)
		return
	}

	c := &Course{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Level:        Level(req.Level),
		Price:        req.Price,
		Tags:         req.Tags,
		Modules:      req.Modules,
		InstructorID: identity.ID,
	}
	if err := h.courses.Create(r.Context(), c); err != nil {
		h.log.Error("failed to create course", slog.Any("error", err))
		response.Error(w, err)
		return
	}

	response.Created(w, "Course created successfully", map[string]any{"course": c})
}

// Update replaces a course's editable fields. Instructors can only edit
// their own courses; admins can edit any.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCourse(w, r)
	if !ok {
		return
	}
	if !h.canManage(w, r, c) {
		return
	}

	var req courseRequest
	if err := binder.Bind(r, &req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		response.Error(w, err)
		return
	}

	c.Title = req.Title
	c.Description = req.Description
	c.Category = req.Category
	c.Level = Level(req.Level)
	c.Price = req.Price
	c.Tags = req.Tags
	c.Modules = req.Modules

	if err := h.courses.Update(r.Context(), c); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Course updated successfully", map[string]any{"course": c})
}

// Delete removes a course and its stored thumbnail.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCourse(w, r)
	if !ok {
		return
	}
	if !h.canManage(w, r, c) {
		return
	}

	if err := h.courses.Delete(r.Context(), c.ID); err != nil {
		response.Error(w, err)
		return
	}
	if c.ThumbnailPath != "" {
		if err := h.storage.Delete(r.Context(), c.ThumbnailPath); err != nil {
			h.log.Warn("failed to delete course thumbnail", slog.Any("error", err))
		}
	}

	response.OK(w, "Course deleted successfully", nil)
}

// TogglePublish flips a course's published state.
func (h *Handler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCourse(w, r)
	if !ok {
		return
	}
	if !h.canManage(w, r, c) {
		return
	}

	c.IsPublished = !c.IsPublished
	if err := h.courses.Update(r.Context(), c); err != nil {
		response.Error(w, err)
		return
	}

	msg := "Course unpublished"
	if c.IsPublished {
		msg = "Course published"
	}
	response.OK(w, msg, map[string]any{"course": c})
}

// UploadThumbnail stores a new course thumbnail image.
func (h *Handler) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadCourse(w, r)
	if !ok {
		return
	}
	if !h.canManage(w, r, c) {
		return
	}

	if err := r.ParseMultipartForm(maxThumbnailSize); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	f, fh, err := r.FormFile("thumbnail")
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Thumbnail file is required")
		return
	}
	defer f.Close()
	if fh.Size > maxThumbnailSize {
		response.Fail(w, http.StatusBadRequest, "Thumbnail must be smaller than 10MB")
		return
	}
	if !file.AllowedType(fh.Header.Get("Content-Type"), file.ImageTypes) {
		response.Fail(w, http.StatusBadRequest, "Thumbnail must be an image")
		return
	}

	stored, err := h.storage.Save(r.Context(), fh, "thumbnails")
	if err != nil {
		h.log.Error("failed to store thumbnail", slog.Any("error", err))
		response.Error(w, err)
		return
	}

	if c.ThumbnailPath != "" && c.ThumbnailPath != stored.Path {
		if err := h.storage.Delete(r.Context(), c.ThumbnailPath); err != nil {
			h.log.Warn("failed to delete previous thumbnail", slog.Any("error", err))
		}
	}

	c.Thumbnail = stored.URL
	c.ThumbnailPath = stored.Path
	if err := h.courses.Update(r.Context(), c); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, "Thumbnail updated successfully", map[string]any{"thumbnail": stored.URL})
}

// Stats returns catalog-wide aggregates.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.courses.Stats(r.Context())
	if err != nil {
		h.log.Error("failed to aggregate course stats", slog.Any("error", err))
		response.Error(w, err)
		return
	}
	response.OK(w, "", map[string]any{"stats": stats})
}

func (h *Handler) loadCourse(w http.ResponseWriter, r *http.Request) (*Course, bool) {
	idHex := chi.URLParam(r, "id")
	if err := validator.Apply(validator.ValidObjectID("id", idHex)); err != nil {
		response.Error(w, err)
		return nil, false
	}
	id, err := bson.ObjectIDFromHex(idHex)
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid course id")
		return nil, false
	}

	c, err := h.courses.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Fail(w, http.StatusNotFound, "Course not found")
			return nil, false
		}
		response.Error(w, err)
		return nil, false
	}
	return c, true
}

// canManage enforces ownership: instructors manage only their own
// courses, admins manage all. Writes the error response on failure.
func (h *Handler) canManage(w http.ResponseWriter, r *http.Request, c *Course) bool {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Authentication required")
		return false
	}
	if identity.Role == user.RoleAdmin {
		return true
	}
	if c.InstructorID != identity.ID {
		response.Fail(w, http.StatusForbidden, "Access denied - insufficient permissions")
		return false
	}
	return true
}
