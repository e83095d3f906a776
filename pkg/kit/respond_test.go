package kit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products/x", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, http.StatusNotFound, "not found", map[string]any{"id": "x"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not found", body.Error)
	assert.Equal(t, map[string]any{"id": "x"}, body.Details)
}

func TestDecodeJSON(t *testing.T) {
	decode := func(body string, strict bool) (map[string]any, error) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var v map[string]any
		err := DecodeJSON(httptest.NewRecorder(), req, &v, strict)
		return v, err
	}

	v, err := decode(`{"title":"Widget"}`, false)
	require.NoError(t, err)
	assert.Equal(t, "Widget", v["title"])

	_, err = decode(`{"a":1} {"b":2}`, false)
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = decode(`{`, false)
	assert.Error(t, err)
}

func TestDecodeJSON_Strict(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x","extra":1}`))
	var v struct {
		Title string `json:"title"`
	}
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &v, true))
}
