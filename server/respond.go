package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"sigs.k8s.io/yaml"
)

// RespondJSON writes data as JSON with statusCode. The body is encoded
// before any header is written so encoding failures never leave a partial
// response.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("json encoding failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("response write failed", "error", err)
	}
}

// RespondYAML writes data as YAML with statusCode.
func RespondYAML(w http.ResponseWriter, statusCode int, data any) {
	out, err := yaml.Marshal(data)
	if err != nil {
		slog.Error("yaml encoding failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(statusCode)
	if _, err := w.Write(out); err != nil {
		slog.Warn("response write failed", "error", err)
	}
}
