package email_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/coursehub/pkg/email"
)

func TestSendParamsValidate(t *testing.T) {
	t.Parallel()

	valid := email.SendParams{
		To:       "user@example.com",
		Subject:  "Hello",
		BodyHTML: "<p>hi</p>",
	}
	assert.NoError(t, valid.Validate())

	t.Run("bad recipient", func(t *testing.T) {
		t.Parallel()
		p := valid
		p.To = "not-an-email"
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()
		p := valid
		p.Subject = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})

	t.Run("missing body", func(t *testing.T) {
		t.Parallel()
		p := valid
		p.BodyHTML = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	t.Run("verification email", func(t *testing.T) {
		t.Parallel()

		params, err := email.VerificationEmail("user@example.com", "Alice", "https://app.test/verify-email/tok123")
		require.NoError(t, err)

		assert.Equal(t, "user@example.com", params.To)
		assert.Equal(t, "email-verification", params.Tag)
		assert.Contains(t, params.BodyHTML, "Alice")
		assert.Contains(t, params.BodyHTML, "https://app.test/verify-email/tok123")
		assert.Contains(t, params.BodyHTML, "24 hours")
	})

	t.Run("password reset email", func(t *testing.T) {
		t.Parallel()

		params, err := email.PasswordResetEmail("user@example.com", "Bob", "https://app.test/reset-password/tok456")
		require.NoError(t, err)

		assert.Equal(t, "password-reset", params.Tag)
		assert.Contains(t, params.BodyHTML, "Bob")
		assert.Contains(t, params.BodyHTML, "tok456")
		assert.Contains(t, params.BodyHTML, "1 hour")
	})

	t.Run("escapes html in names", func(t *testing.T) {
		t.Parallel()

		params, err := email.VerificationEmail("user@example.com", "<script>x</script>", "https://app.test/v/t")
		require.NoError(t, err)
		assert.NotContains(t, params.BodyHTML, "<script>")
	})
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender, err := email.NewDevSender(dir, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	params, err := email.VerificationEmail("user@example.com", "Alice", "https://app.test/v/t")
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), params))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".html", filepath.Ext(entries[0].Name()))

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Alice")
}
