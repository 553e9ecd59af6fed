// Package response writes the API's JSON envelope and maps errors to it.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/coursehub/coursehub/pkg/validator"
)

// Body is the envelope every JSON response uses.
type Body struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    any                    `json:"data,omitempty"`
	Errors  []validator.FieldError `json:"errors,omitempty"`
}

// HTTPError is an error carrying its HTTP status and a client-safe message.
type HTTPError struct {
	Status  int
	Message string
}

func (e HTTPError) Error() string { return e.Message }

// NewHTTPError creates an HTTPError with the given status and message.
func NewHTTPError(status int, message string) HTTPError {
	return HTTPError{Status: status, Message: message}
}

// JSON writes an arbitrary envelope with the given status.
func JSON(w http.ResponseWriter, status int, body Body) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Body{Success: true, Message: message, Data: data})
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Body{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope with the given status and message.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Body{Success: false, Message: message})
}

// FailValidation writes a 400 envelope carrying field-level errors.
func FailValidation(w http.ResponseWriter, errs validator.Errors) {
	JSON(w, http.StatusBadRequest, Body{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}

// Error converts any error into the envelope. Validation errors become a
// 400 with field detail, HTTPError keeps its status and message, and
// everything else collapses to an opaque 500 so internals never leak.
func Error(w http.ResponseWriter, err error) {
	if ve := validator.Extract(err); ve != nil {
		FailValidation(w, ve)
		return
	}
	if httpErr, ok := err.(HTTPError); ok {
		Fail(w, httpErr.Status, httpErr.Message)
		return
	}
	Fail(w, http.StatusInternalServerError, "Internal server error")
}
