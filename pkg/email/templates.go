package email

import (
	"bytes"
	"errors"
	"html/template"
)

// layoutTmpl is the shared shell for all transactional emails.
var layoutTmpl = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h2 style="color: #1f2937;">{{.Heading}}</h2>
	<p>Hi {{.Name}},</p>
	<p>{{.Intro}}</p>
	<p style="margin: 30px 0;">
		<a href="{{.ActionURL}}" style="background-color: #2563eb; color: #ffffff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">{{.ActionLabel}}</a>
	</p>
	<p>Or copy this link into your browser:</p>
	<p style="word-break: break-all; color: #6b7280;">{{.ActionURL}}</p>
	<p style="color: #6b7280; font-size: 14px;">{{.Footnote}}</p>
</body>
</html>`))

type templateData struct {
	Heading     string
	Name        string
	Intro       string
	ActionURL   string
	ActionLabel string
	Footnote    string
}

func renderLayout(data templateData) (string, error) {
	var buf bytes.Buffer
	if err := layoutTmpl.Execute(&buf, data); err != nil {
		return "", errors.Join(ErrFailedToSendEmail, err)
	}
	return buf.String(), nil
}

// VerificationEmail builds the email-verification message pointing at
// verifyURL. The link is valid for 24 hours.
func VerificationEmail(to, name, verifyURL string) (SendParams, error) {
	body, err := renderLayout(templateData{
		Heading:     "Verify your email address",
		Name:        name,
		Intro:       "Thanks for signing up. Please confirm your email address to activate your account.",
		ActionURL:   verifyURL,
		ActionLabel: "Verify Email",
		Footnote:    "This link expires in 24 hours. If you did not create an account, you can safely ignore this email.",
	})
	if err != nil {
		return SendParams{}, err
	}
	return SendParams{
		To:       to,
		Subject:  "Verify your email address",
		BodyHTML: body,
		Tag:      "email-verification",
	}, nil
}

// PasswordResetEmail builds the password-reset message pointing at
// resetURL. The link is valid for 1 hour.
func PasswordResetEmail(to, name, resetURL string) (SendParams, error) {
	body, err := renderLayout(templateData{
		Heading:     "Reset your password",
		Name:        name,
		Intro:       "We received a request to reset your password. Click the button below to choose a new one.",
		ActionURL:   resetURL,
		ActionLabel: "Reset Password",
		Footnote:    "This link expires in 1 hour. If you did not request a password reset, you can safely ignore this email.",
	})
	if err != nil {
		return SendParams{}, err
	}
	return SendParams{
		To:       to,
		Subject:  "Reset your password",
		BodyHTML: body,
		Tag:      "password-reset",
	}, nil
}
