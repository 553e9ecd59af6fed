package validator

import "regexp"

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)
)

const (
	passwordMinLength = 8
	passwordMaxLength = 128
)

// StrongPassword validates the composite password policy: 8-128 characters
// containing at least one uppercase letter, one lowercase letter, one digit
// and one symbol. The rejected value is never echoed back.
func StrongPassword(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if len(value) < passwordMinLength || len(value) > passwordMaxLength {
				return false
			}
			return uppercaseRegex.MatchString(value) &&
				lowercaseRegex.MatchString(value) &&
				digitRegex.MatchString(value) &&
				specialCharRegex.MatchString(value)
		},
		Err: FieldError{
			Field:   field,
			Message: "password must be at least 8 characters with uppercase, lowercase, digit and special character",
		},
	}
}
