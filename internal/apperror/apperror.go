// Package apperror holds the error kinds the HTTP layer knows how to render.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream service error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// kindError ties a human message to one of the sentinel kinds above.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func NotFound(msg string) error     { return &kindError{kind: ErrNotFound, msg: msg} }
func Conflict(msg string) error     { return &kindError{kind: ErrConflict, msg: msg} }
func Unauthorized(msg string) error { return &kindError{kind: ErrUnauthorized, msg: msg} }
func Forbidden(msg string) error    { return &kindError{kind: ErrForbidden, msg: msg} }

// Upstream wraps a failure of an external dependency (payment provider, captcha).
func Upstream(service string, err error) error {
	return fmt.Errorf("%s: %w: %w", service, ErrUpstream, err)
}

// ValidationError carries field-level messages.
type ValidationError struct {
	Fields map[string]string
}

func NewValidation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// OrNil returns nil when no field was reported.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HTTPStatus maps an error to the response status code.
func HTTPStatus(err error) int {
	var vErr *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
