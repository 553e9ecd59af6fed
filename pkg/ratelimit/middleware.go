package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/coursehub/coursehub/pkg/clientip"
	"github.com/coursehub/coursehub/pkg/response"
)

// KeyFunc extracts a rate-limit key from a request. Returning "" skips
// limiting for that request.
type KeyFunc func(*http.Request) string

// ByClientIP keys requests by the caller's IP, honoring proxy headers.
func ByClientIP(r *http.Request) string {
	return clientip.Get(r)
}

// Middleware enforces the limiter on every request. Fails open: storage
// errors let the request through rather than taking the API down with the
// counter backend.
func Middleware(limiter Limiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	if keyFunc == nil {
		panic("ratelimit.Middleware: keyFunc is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(result.RetryAfter().Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				response.Fail(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
