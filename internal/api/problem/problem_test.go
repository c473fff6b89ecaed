package problem

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteSetsContentTypeAndStatus(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/events/", nil)

	Write(w, r, 404, TypeNotFound, "Not found", errors.New("no such event"), "test")

	require.Equal(t, 404, w.Code)
	require.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var body ProblemDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, TypeNotFound, body.Type)
	require.Equal(t, "Not found", body.Title)
	require.Equal(t, "no such event", body.Detail)
	require.Equal(t, "/events/", body.Instance)
}

func TestWriteRedactsDetailInProduction(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/events/", nil)

	Write(w, r, 500, TypeServerError, "Server error", errors.New("pq: connection refused"), "production")

	var body ProblemDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "Internal Server Error", body.Detail)
	require.NotContains(t, w.Body.String(), "connection refused")
}

func TestWriteIncludesFieldErrors(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/accounts/register/", nil)

	Write(w, r, 400, TypeValidation, "Invalid request", nil, "test",
		WithErrors(map[string]interface{}{"password": "too short"}))

	var body ProblemDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "too short", body.Errors["password"])
}
