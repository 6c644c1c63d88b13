package utils

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/brizzai/oauth-flow/internal/logger"
	"go.uber.org/zap"
)

// WriteJSON writes a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code, message string, status int) {
	WriteJSON(w, status, map[string]string{
		"error":             code,
		"error_description": message,
	})
}

// WriteHTML renders tmpl into a buffer first so a template failure still
// produces a clean 500 instead of a half written page
func WriteHTML(w http.ResponseWriter, status int, tmpl *template.Template, data interface{}) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logger.Error("Failed to render HTML response", zap.String("template", tmpl.Name()), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("Failed to write HTML response", zap.Error(err))
	}
}
