package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DevSender writes emails to HTML files instead of delivering them.
// Useful in development where no Postmark token is configured.
type DevSender struct {
	dir string
	log *slog.Logger
}

// NewDevSender creates a file-based sender writing into dir.
func NewDevSender(dir string, log *slog.Logger) (*DevSender, error) {
	if dir == "" {
		dir = "./tmp/emails"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &DevSender{dir: dir, log: log}, nil
}

// Send writes the message to a timestamped .html file and logs its path.
func (s *DevSender) Send(_ context.Context, params SendParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	name := fmt.Sprintf("%d_%s_%s.html",
		time.Now().UnixNano(),
		sanitizeNamePart(params.To),
		sanitizeNamePart(params.Subject),
	)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, []byte(params.BodyHTML), 0o644); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	s.log.Info("email written to file",
		slog.String("to", params.To),
		slog.String("subject", params.Subject),
		slog.String("path", path),
	)
	return nil
}

func sanitizeNamePart(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
	if len(s) > 40 {
		s = s[:40]
	}
	return strings.Trim(s, "-")
}
