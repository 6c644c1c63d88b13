package utils

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "access_denied", "Access was denied", http.StatusForbidden)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "access_denied", body["error"])
	assert.Equal(t, "Access was denied", body["error_description"])
}

func TestWriteHTML(t *testing.T) {
	tmpl := template.Must(template.New("link").Parse(`<a href="{{.}}">go</a>`))

	rec := httptest.NewRecorder()
	WriteHTML(rec, http.StatusOK, tmpl, "https://example.com/?a=1&b=2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `<a href="https://example.com/?a=1&amp;b=2">go</a>`, rec.Body.String())
}

func TestWriteHTML_TemplateError(t *testing.T) {
	tmpl := template.Must(template.New("broken").Parse(`{{.Missing.Field}}`))

	rec := httptest.NewRecorder()
	WriteHTML(rec, http.StatusOK, tmpl, struct{}{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
