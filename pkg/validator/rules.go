package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

var (
	// International phone shape with optional country code (E.164).
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

	// 24-char hexadecimal document id.
	objectIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
)

// Required validates that a string is non-empty after trimming.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
			Value:   value,
		},
	}
}

// MinLen validates a lower bound on string length.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return len(value) >= min },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at least %d characters", field, min),
			Value:   value,
		},
	}
}

// MaxLen validates an upper bound on string length.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s cannot exceed %d characters", field, max),
			Value:   value,
		},
	}
}

// ValidEmail validates email shape using the RFC 5322 parser plus the
// practical constraints expected for web signups (dotted, non-empty domain).
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}
			parts := strings.Split(value, "@")
			if len(parts) != 2 || parts[0] == "" {
				return false
			}
			domain := parts[1]
			if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
				return false
			}
			for part := range strings.SplitSeq(domain, ".") {
				if part == "" {
					return false
				}
			}
			return true
		},
		Err: FieldError{
			Field:   field,
			Message: "must be a valid email address",
			Value:   value,
		},
	}
}

// ValidPhone validates an international phone number, tolerating spaces
// and dashes in the input.
func ValidPhone(field, value string) Rule {
	return Rule{
		Check: func() bool {
			cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(value)
			if len(cleaned) < 7 {
				return false
			}
			return phoneRegex.MatchString(cleaned)
		},
		Err: FieldError{
			Field:   field,
			Message: "must be a valid phone number",
			Value:   value,
		},
	}
}

// ValidURL validates that a string parses as an absolute URL.
func ValidURL(field, value string) Rule {
	return Rule{
		Check: func() bool {
			u, err := url.ParseRequestURI(value)
			return err == nil && u.Scheme != "" && u.Host != ""
		},
		Err: FieldError{
			Field:   field,
			Message: "must be a valid URL",
			Value:   value,
		},
	}
}

// OneOf validates membership in a closed set.
func OneOf[T comparable](field string, value T, allowed []T) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s must be one of the allowed values", field),
			Value:   value,
		},
	}
}

// Min validates a numeric lower bound.
func Min[T Numeric](field string, value, min T) Rule {
	return Rule{
		Check: func() bool { return value >= min },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at least %v", field, min),
			Value:   value,
		},
	}
}

// Max validates a numeric upper bound.
func Max[T Numeric](field string, value, max T) Rule {
	return Rule{
		Check: func() bool { return value <= max },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s cannot exceed %v", field, max),
			Value:   value,
		},
	}
}

// NonNegative validates that a numeric value is zero or greater.
func NonNegative[T Numeric](field string, value T) Rule {
	return Rule{
		Check: func() bool { return value >= 0 },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s cannot be negative", field),
			Value:   value,
		},
	}
}

// FieldsMatch validates cross-field equality for confirmation inputs.
// The rejected value is not echoed since confirmation fields usually
// carry secrets.
func FieldsMatch(field, value, other string) Rule {
	return Rule{
		Check: func() bool { return value == other },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s does not match", field),
		},
	}
}

// ValidObjectID validates the 24-character hexadecimal id format used by
// the document store.
func ValidObjectID(field, value string) Rule {
	return Rule{
		Check: func() bool { return objectIDRegex.MatchString(value) },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("invalid %s format", field),
			Value:   value,
		},
	}
}

// NotEmptySlice validates that a slice has at least one element.
func NotEmptySlice[T any](field string, value []T) Rule {
	return Rule{
		Check: func() bool { return len(value) > 0 },
		Err: FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s must have at least one entry", field),
		},
	}
}
