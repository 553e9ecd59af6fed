package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// postmarkClient is the subset of the Postmark API the sender needs.
// Narrowed to an interface so tests can stub the HTTP client out.
type postmarkClient interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkSender delivers mail through the Postmark transactional API.
type PostmarkSender struct {
	client       postmarkClient
	senderEmail  string
	supportEmail string
}

// NewPostmarkSender creates a Postmark-backed sender from config.
func NewPostmarkSender(cfg Config) (*PostmarkSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("postmark server token is required"))
	}
	if cfg.SenderEmail == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("sender email is required"))
	}
	return &PostmarkSender{
		client:       postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		senderEmail:  cfg.SenderEmail,
		supportEmail: cfg.SupportEmail,
	}, nil
}

// Send delivers a single message. Postmark reports API-level failures via
// a non-zero ErrorCode on an otherwise successful HTTP response.
func (s *PostmarkSender) Send(ctx context.Context, params SendParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.senderEmail,
		ReplyTo:    s.supportEmail,
		To:         params.To,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode != 0 {
		return errors.Join(ErrFailedToSendEmail, fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
