package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"ridefuture-be/internal/apperror"
)

var (
	nonAlnumRegex  = regexp.MustCompile(`[^a-z0-9]+`)
	multiDashRegex = regexp.MustCompile(`-+`)
)

func Slugify(input string) string {
	slug := strings.ToLower(strings.TrimSpace(input))

	// Replace non-alphanumeric characters with dash
	slug = nonAlnumRegex.ReplaceAllString(slug, "-")
	slug = multiDashRegex.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ParseID parses a positive numeric identifier taken from a path segment.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func WriteJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, map[string]string{"error": message})
}

// WriteJSONFieldErrors writes a validation failure with per-field messages.
func WriteJSONFieldErrors(w http.ResponseWriter, message string, fields map[string]string, code int) {
	WriteJSON(w, code, map[string]any{"error": message, "fields": fields})
}

// WriteError maps err to its status code. Unexpected errors are not exposed.
func WriteError(w http.ResponseWriter, err error) {
	status := apperror.HTTPStatus(err)

	var vErr *apperror.ValidationError
	switch {
	case errors.As(err, &vErr):
		WriteJSONFieldErrors(w, "validation failed", vErr.Fields, status)
	case status == http.StatusInternalServerError:
		WriteJSONError(w, "internal server error", status)
	default:
		WriteJSONError(w, err.Error(), status)
	}
}
