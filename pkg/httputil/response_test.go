package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(err error) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithError(c, err)
	return w, c
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		guard  string
	}{
		{"not found", apperrors.NewNotFound("booking x", nil), http.StatusNotFound, "not_found", ""},
		{"validation", apperrors.NewValidation("bad", nil), http.StatusBadRequest, "validation", ""},
		{"date range", apperrors.NewDateRange("too long"), http.StatusBadRequest, "validation", ""},
		{"invalid transition", apperrors.NewInvalidTransition("pay", "PAID"), http.StatusConflict, "invalid_transition", ""},
		{"concurrent", apperrors.NewConcurrentModification("booking x", nil), http.StatusConflict, "concurrent_modification", ""},
		{"guard", apperrors.NewGuardViolation("role", "no"), http.StatusUnprocessableEntity, "guard_violation", "role"},
		{"wrapped", errorsWrap(apperrors.NewNotFound("work date", nil)), http.StatusNotFound, "not_found", ""},
		{"plain", errors.New("db down"), http.StatusInternalServerError, "internal", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := respond(tt.err)
			assert.Equal(t, tt.status, w.Code)

			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "error", body.Status)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.guard, body.Error.Guard)
		})
	}
}

func TestRespondWithError_HidesInternalDetail(t *testing.T) {
	w, c := respond(errors.New("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password")
	assert.Len(t, c.Errors, 1)
}

func TestRespondWithError_DateRangeReason(t *testing.T) {
	w, _ := respond(apperrors.NewDateRange("too long"))
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.ReasonDateRange, body.Error.Reason)
}

func TestRespondWithSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithSuccess(c, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"success","data":{"n":1}}`, w.Body.String())
}

func errorsWrap(err error) error {
	return fmt.Errorf("failed to add staff: %w", err)
}

func TestRespondWithPartial(t *testing.T) {
	partial := map[string]int{"failed": 2}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithPartial(c, fmt.Errorf("assign: %w", context.Canceled), partial)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	var body struct {
		Data  map[string]int `json:"data"`
		Error *Error         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, partial, body.Data)
	assert.Equal(t, "timeout", body.Error.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	RespondWithPartial(c, apperrors.NewNotFound("work date", nil), partial)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, partial, body.Data)
}
