package http

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_ShapesResponse(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteUnauthorized(rec, "Invalid credentials")

	assert.Equal(t, 401, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unauthorized", resp.Error)
	assert.Equal(t, "Invalid credentials", resp.Message)
}

func TestWriteError_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		write    func(rec *httptest.ResponseRecorder)
		status   int
		code     string
	}{
		{"bad request", func(r *httptest.ResponseRecorder) { WriteBadRequest(r, "m") }, 400, "bad_request"},
		{"unauthorized", func(r *httptest.ResponseRecorder) { WriteUnauthorized(r, "m") }, 401, "unauthorized"},
		{"not found", func(r *httptest.ResponseRecorder) { WriteNotFound(r, "m") }, 404, "not_found"},
		{"conflict", func(r *httptest.ResponseRecorder) { WriteConflict(r, "m") }, 409, "conflict"},
		{"too many requests", func(r *httptest.ResponseRecorder) { WriteTooManyRequests(r, "m") }, 429, "rate_limit_exceeded"},
		{"internal", func(r *httptest.ResponseRecorder) { WriteInternalError(r, "m") }, 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestWriteOK_UniformBody(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteOK(rec)

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
