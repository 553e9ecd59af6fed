// Package sanitizer provides input normalization applied before validation.
package sanitizer

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	unsafeFileRegex  = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	repeatedDotRegex = regexp.MustCompile(`\.{2,}`)
)

// Trim removes leading and trailing whitespace.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail lowercases and trims an email address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// SanitizeFilename strips path components and unsafe characters from an
// uploaded filename. Dot sequences are collapsed to block traversal tricks.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	filename = repeatedDotRegex.ReplaceAllString(filename, ".")
	filename = unsafeFileRegex.ReplaceAllString(filename, "_")
	return strings.Trim(filename, "._")
}

// CleanMap recursively trims string leaves of a decoded JSON payload and
// removes keys whose value is an empty string. Nested objects are cleaned
// in place; other value types pass through untouched.
func CleanMap(payload map[string]any) map[string]any {
	for key, value := range payload {
		switch v := value.(type) {
		case string:
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				delete(payload, key)
			} else {
				payload[key] = trimmed
			}
		case map[string]any:
			payload[key] = CleanMap(v)
		case []any:
			payload[key] = cleanSlice(v)
		}
	}
	return payload
}

func cleanSlice(items []any) []any {
	for i, item := range items {
		switch v := item.(type) {
		case string:
			items[i] = strings.TrimSpace(v)
		case map[string]any:
			items[i] = CleanMap(v)
		case []any:
			items[i] = cleanSlice(v)
		}
	}
	return items
}
