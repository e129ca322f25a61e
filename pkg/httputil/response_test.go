package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(w, map[string]string{"name": "Central"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.True(t, body.Success)
	assert.NotNil(t, body.Data)
}

func TestWriteUnauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	WriteUnauthorized(w, "Authentication required")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "Authentication required", body.Message)
	assert.Nil(t, body.Data)
}

func TestWriteForbidden(t *testing.T) {
	w := httptest.NewRecorder()
	WriteForbidden(w, "You do not have permission to perform this action")

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "You do not have permission to perform this action", body.Message)
}

func TestWriteInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalError(w, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "boom", body.Message)
}

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	w := httptest.NewRecorder()
	WriteForbidden(w, "nope")

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "data")
}
