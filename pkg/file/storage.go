// Package file stores uploaded files on local disk or S3-compatible
// object storage behind a common interface.
package file

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/coursehub/coursehub/pkg/sanitizer"
)

var (
	ErrInvalidConfig   = errors.New("file: invalid configuration")
	ErrFileTooLarge    = errors.New("file: file too large")
	ErrUnsupportedType = errors.New("file: unsupported content type")
	ErrSaveFailed      = errors.New("file: failed to save")
	ErrDeleteFailed    = errors.New("file: failed to delete")
	ErrInvalidPath     = errors.New("file: invalid path")
	ErrMissingFile     = errors.New("file: missing file")
)

// File describes a stored object.
type File struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Storage persists uploaded files.
type Storage interface {
	// Save stores the upload under dir using a generated unique name and
	// returns the stored file's metadata.
	Save(ctx context.Context, fh *multipart.FileHeader, dir string) (*File, error)
	// Delete removes a previously stored file. Missing files are not an error.
	Delete(ctx context.Context, path string) error
	// URL returns the public URL for a stored path.
	URL(path string) string
}

// Image and video types accepted for course media uploads.
var (
	ImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	VideoTypes = []string{"video/mp4", "video/mpeg", "video/quicktime", "video/webm"}
	DocTypes   = []string{"application/pdf"}
)

// AllowedType reports whether contentType matches one of the allowed
// types. Entries ending in "/*" match the whole major type.
func AllowedType(contentType string, allowed []string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, a := range allowed {
		if major, ok := strings.CutSuffix(a, "/*"); ok {
			if strings.HasPrefix(mediaType, major+"/") {
				return true
			}
			continue
		}
		if mediaType == a {
			return true
		}
	}
	return false
}

// uniqueName builds a collision-free object name preserving the original
// extension.
func uniqueName(original string) string {
	clean := sanitizer.SanitizeFilename(original)
	ext := filepath.Ext(clean)
	return uuid.NewString() + strings.ToLower(ext)
}

// contentTypeOf returns the declared content type of an upload, falling
// back to application/octet-stream.
func contentTypeOf(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
