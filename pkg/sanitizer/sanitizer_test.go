package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coursehub/coursehub/pkg/sanitizer"
)

func TestCleanMap(t *testing.T) {
	t.Parallel()

	t.Run("trims strings and drops empty keys", func(t *testing.T) {
		t.Parallel()

		got := sanitizer.CleanMap(map[string]any{
			"name": "  Bob  ",
			"note": "",
		})
		assert.Equal(t, map[string]any{"name": "Bob"}, got)
	})

	t.Run("cleans nested objects and slices", func(t *testing.T) {
		t.Parallel()

		got := sanitizer.CleanMap(map[string]any{
			"profile": map[string]any{
				"bio":   "  hello  ",
				"blank": "   ",
			},
			"tags": []any{" go ", "web"},
		})
		assert.Equal(t, map[string]any{
			"profile": map[string]any{"bio": "hello"},
			"tags":    []any{"go", "web"},
		}, got)
	})

	t.Run("leaves non-string values untouched", func(t *testing.T) {
		t.Parallel()

		got := sanitizer.CleanMap(map[string]any{
			"count":  float64(3),
			"active": true,
			"null":   nil,
		})
		assert.Equal(t, map[string]any{
			"count":  float64(3),
			"active": true,
			"null":   nil,
		}, got)
	})
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user@example.com", sanitizer.NormalizeEmail("  User@Example.COM "))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		"my file (1).png":     "my_file__1_.png",
		"weird..name...doc":   "weird.name.doc",
		"..hidden":            "hidden",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizer.SanitizeFilename(in), in)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", sanitizer.NormalizeWhitespace("  a \t b \n c  "))
}
