package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/article-api/internal/apperror"
)

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantData    any
	}{
		{
			name:        "validation with fields",
			err:         apperror.ValidationFields(map[string][]string{"title": {"The title field is required."}}),
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Validation Error",
			wantData:    map[string]any{"title": []any{"The title field is required."}},
		},
		{
			name:        "single field validation is expanded",
			err:         apperror.ValidationFailed("cover", "too big"),
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Validation Error",
			wantData:    map[string]any{"cover": []any{"too big"}},
		},
		{
			name:        "wrapped not found",
			err:         fmt.Errorf("service: get: %w", apperror.NotFound("article", "abc")),
			wantStatus:  http.StatusNotFound,
			wantMessage: "error",
			wantData:    "Article not found",
		},
		{
			name:        "user not found",
			err:         apperror.NotFound("user", "abc"),
			wantStatus:  http.StatusNotFound,
			wantMessage: "error",
			wantData:    "User not found",
		},
		{
			name:        "unauthorized",
			err:         apperror.Unauthorized("Unauthorized"),
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Unauthorized",
		},
		{
			name:        "forbidden",
			err:         apperror.Forbidden("nope"),
			wantStatus:  http.StatusForbidden,
			wantMessage: "error",
			wantData:    "nope",
		},
		{
			name:        "conflict",
			err:         apperror.Conflict("user", "x"),
			wantStatus:  http.StatusConflict,
			wantMessage: "error",
			wantData:    "user conflict with id x",
		},
		{
			name:        "storage failure hides the cause",
			err:         apperror.StorageFailed("save cover", errors.New("open /srv/data/secret: permission denied")),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "error",
			wantData:    "An internal error occurred",
		},
		{
			name:        "unknown error",
			err:         errors.New("sql: database is locked"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "error",
			wantData:    "An internal error occurred",
		},
		{
			name:        "body too large",
			err:         &http.MaxBytesError{Limit: 10},
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantMessage: "error",
			wantData:    "Request body too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantMessage, body["message"])
			assert.Equal(t, tt.wantData, body["data"])
		})
	}
}

func TestWriteJSON_OmitsEmptyData(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, Envelope{Message: "success"})

	assert.JSONEq(t, `{"message":"success"}`, rr.Body.String())
}

func TestNotFoundText(t *testing.T) {
	assert.Equal(t, "Article not found", notFoundText("article"))
	assert.Equal(t, "Not found", notFoundText(""))
}
