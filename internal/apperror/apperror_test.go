package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Nil", nil, http.StatusOK},
		{"Validation", NewValidation("email", "required"), http.StatusBadRequest},
		{"WrappedValidation", fmt.Errorf("create: %w", NewValidation("email", "required")), http.StatusBadRequest},
		{"NotFound", NotFound("order not found"), http.StatusNotFound},
		{"Conflict", Conflict("insufficient stock"), http.StatusConflict},
		{"Upstream", Upstream("stripe", errors.New("boom")), http.StatusBadRequest},
		{"Unauthorized", Unauthorized("login required"), http.StatusUnauthorized},
		{"Forbidden", Forbidden("staff only"), http.StatusForbidden},
		{"Unknown", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("card_declined")
	err := Upstream("stripe", cause)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "stripe: upstream service error: card_declined", err.Error())
}

func TestValidationError(t *testing.T) {
	vErr := &ValidationError{}
	assert.NoError(t, vErr.OrNil())

	vErr.Add("phone", "required")
	vErr.Add("email", "invalid")
	vErr.Add("email", "ignored second message")

	assert.Error(t, vErr.OrNil())
	assert.Equal(t, "validation failed: email: invalid; phone: required", vErr.Error())
}
