package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authcore/internal/authflow"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/security/password"
)

func TestWriteDomainError_MapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{repository.ErrUnauthorized, http.StatusUnauthorized, "invalid_credentials"},
		{fmt.Errorf("wrap: %w", repository.ErrUnauthorized), http.StatusUnauthorized, "invalid_credentials"},
		{repository.ErrLocked, http.StatusLocked, "account_locked"},
		{repository.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{repository.ErrConflict, http.StatusConflict, "conflict"},
		{repository.ErrInvalidInput, http.StatusBadRequest, "invalid_request"},
		{repository.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteDomainError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, "err=%v", tc.err)

		var body apiError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Error)
	}
}

func TestWriteDomainError_PolicyViolationsInBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, &authflow.PolicyError{
		Violations: []string{password.ViolationTooShort, password.ViolationMissingUpper},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "password_policy", body.Error)
	assert.Equal(t, []string{password.ViolationTooShort, password.ViolationMissingUpper}, body.Violations)
}

func TestReadJSON_RequiresJSONContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "text/plain")

	var v map[string]any
	assert.False(t, ReadJSON(rec, req, &v))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadJSON_TolerantToUnknownFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c","extra":true}`))
	req.Header.Set("Content-Type", "application/json")

	var v struct {
		Email string `json:"email"`
	}
	require.True(t, ReadJSON(rec, req, &v))
	assert.Equal(t, "a@b.c", v.Email)
}
