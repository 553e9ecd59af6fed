// Package binder decodes JSON request bodies with a sanitization pass.
package binder

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/coursehub/coursehub/pkg/sanitizer"
)

// maxBodySize caps JSON payloads at 1MB; uploads go through multipart.
const maxBodySize = 1 << 20

var ErrInvalidBody = errors.New("binder: invalid request body")

// Bind reads a JSON body, trims string leaves, drops empty-string keys and
// decodes the cleaned payload into dst. Sanitization happens on the raw
// document so validation always sees normalized input.
func Bind(r *http.Request, dst any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Join(ErrInvalidBody, err)
	}
	if len(raw) == 0 {
		// Empty bodies decode to the zero value; callers validate presence.
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.Join(ErrInvalidBody, err)
	}
	payload = sanitizer.CleanMap(payload)

	cleaned, err := json.Marshal(payload)
	if err != nil {
		return errors.Join(ErrInvalidBody, err)
	}
	if err := json.Unmarshal(cleaned, dst); err != nil {
		return errors.Join(ErrInvalidBody, err)
	}
	return nil
}
