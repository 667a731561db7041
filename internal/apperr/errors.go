// Package apperr holds the error taxonomy shared by the stores, the services
// and the HTTP layer. Handlers map these to status codes in one place.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

// Client errors
var (
	ErrInvalidInput       = errors.New("invalid input")             // 400
	ErrDuplicateEmail     = errors.New("user already exists")       // 400, kept from the original API
	ErrInvalidCredentials = errors.New("invalid email or password") // 401
	ErrUnauthenticated    = errors.New("user not authenticated")    // 401
	ErrForbidden          = errors.New("access to record denied")   // 403
	ErrRecordNotFound     = errors.New("medical record not found")  // 404
	ErrRecordExists       = errors.New("medical record already submitted")
)

// Server errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUpload       = errors.New("attachment upload failed") // 500
	ErrStorage      = errors.New("storage failure")          // 500
)

// ValidationError lists every offending field of a submission. Field names
// use the JSON/form names the client sent.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a problem with field. The first problem reported for a field wins.
func (e *ValidationError) Add(field, problem string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = problem
}

// OrNil returns e when it holds at least one field, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// FieldNames returns the offending fields sorted by name.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (e *ValidationError) Error() string {
	names := e.FieldNames()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + e.Fields[n]
	}
	return "validation failed (" + strings.Join(parts, "; ") + ")"
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
