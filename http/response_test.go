package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrewal/ferry"
	ferryhttp "github.com/mgrewal/ferry/http"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	ferryhttp.WriteError(rec, http.StatusBadRequest, "invalid_path", "Invalid path")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ferryhttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_path", resp.Error)
	assert.Equal(t, "Invalid path", resp.Message)
}

func TestHandleError(t *testing.T) {
	tt := []struct {
		Name       string
		Err        error
		WantStatus int
		WantCode   string
	}{
		{Name: "malformed path", Err: ferry.ErrMalformedPath, WantStatus: http.StatusBadRequest, WantCode: "bad_request"},
		{Name: "forbidden path", Err: ferry.ErrForbiddenPath, WantStatus: http.StatusForbidden, WantCode: "forbidden"},
		{Name: "wrapped http error", Err: fmt.Errorf("resolve: %w", ferry.ErrForbiddenPath), WantStatus: http.StatusForbidden, WantCode: "forbidden"},
		{Name: "not found", Err: ferry.ErrNotFound, WantStatus: http.StatusNotFound, WantCode: "not_found"},
		{Name: "invalid input", Err: ferry.ErrInvalidInput, WantStatus: http.StatusBadRequest, WantCode: "invalid_path"},
		{Name: "unknown error", Err: errors.New("boom"), WantStatus: http.StatusInternalServerError, WantCode: "internal_error"},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			ferryhttp.HandleError(rec, tc.Err)

			assert.Equal(t, tc.WantStatus, rec.Code)

			var resp ferryhttp.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.WantCode, resp.Error)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := ferryhttp.WriteJSON(rec, http.StatusOK, map[string]string{"hello": "world"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, rec.Body.String())
}
