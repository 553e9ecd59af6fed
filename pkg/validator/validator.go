package validator

import (
	"errors"
	"fmt"
	"strings"
)

// Numeric constrains the numeric rule helpers to built-in number types.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// FieldError describes a single failed check. Value echoes the rejected
// input back to the client; rules guarding secrets leave it nil.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Errors is the aggregate result of a validation pass.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) IsEmpty() bool { return len(e) == 0 }

func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Fields returns the distinct failed field names in declaration order.
func (e Errors) Fields() []string {
	seen := make(map[string]bool, len(e))
	var fields []string
	for _, fe := range e {
		if !seen[fe.Field] {
			fields = append(fields, fe.Field)
			seen[fe.Field] = true
		}
	}
	return fields
}

// Rule binds a predicate to the error reported when it fails.
type Rule struct {
	Check func() bool
	Err   FieldError
}

// Apply runs every rule and collects all failures. It never short-circuits
// across fields; callers that need chained per-field checks compose them
// with When.
func Apply(rules ...Rule) error {
	var errs Errors
	for _, rule := range rules {
		if !rule.Check() {
			errs = append(errs, rule.Err)
		}
	}
	if errs.IsEmpty() {
		return nil
	}
	return errs
}

// When gates a rule on a condition, letting optional fields skip checks
// that only make sense once the field is present.
func When(cond bool, rule Rule) Rule {
	if cond {
		return rule
	}
	return Rule{Check: func() bool { return true }, Err: rule.Err}
}

// Extract returns the aggregate validation errors carried by err, or nil.
func Extract(err error) Errors {
	if err == nil {
		return nil
	}
	var ve Errors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func IsValidationError(err error) bool {
	var ve Errors
	return err != nil && errors.As(err, &ve)
}
