package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same code", NewNotFound("booking", nil), NotFoundError, true},
		{"different code", NewNotFound("booking", nil), ValidationError, false},
		{"date range is a validation error", NewDateRange("too long"), ValidationError, true},
		{"plain validation is not a date range", NewValidation("bad", nil), DateRangeError, false},
		{"guard matches any guard", NewGuardViolation("role", "nope"), GuardViolation, true},
		{"guard narrows", NewGuardViolation("role", "nope"), &AppError{Code: ErrGuardViolation, Guard: "record_once"}, false},
		{"wrapped", fmt.Errorf("failed to transition: %w", NewInvalidTransition("pay", "PAID")), InvalidTransition, true},
		{"not an app error", stderrors.New("boom"), NotFoundError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stderrors.Is(tt.err, tt.target))
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewNotFound("x", nil), http.StatusNotFound},
		{NewValidation("x", nil), http.StatusBadRequest},
		{NewBadRequest("x", nil), http.StatusBadRequest},
		{NewDateRange("x"), http.StatusBadRequest},
		{Unauthorized(nil), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NewInvalidTransition("pay", "PAID"), http.StatusConflict},
		{NewConcurrentModification("booking", nil), http.StatusConflict},
		{NewGuardViolation("role", "x"), http.StatusUnprocessableEntity},
		{NewInternal(nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrGuardViolation, CodeOf(fmt.Errorf("wrap: %w", NewGuardViolation("role", "x"))))
	assert.Equal(t, ErrInternal, CodeOf(stderrors.New("boom")))
}

func TestErrorMessage(t *testing.T) {
	err := NewNotFound("booking", stderrors.New("no rows"))
	assert.Equal(t, "booking not found: no rows", err.Error())
	assert.Equal(t, "action pay is not allowed from status PAID", NewInvalidTransition("pay", "PAID").Error())
	assert.True(t, stderrors.Is(err, err.Err))
}
