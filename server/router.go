package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routeIndex lists every served pattern for the index page.
var routeIndex = []string{
	"GET /api/clusters",
	"POST /api/clusters/display-name",
	"GET /api/clusters/{cluster}/nodes",
	"GET /api/clusters/{cluster}/nodegroups",
	"GET /api/clusters/{cluster}/pods",
	"GET /api/clusters/{cluster}/health",
	"DELETE /api/clusters/{cluster}/pods/{namespace}/{pod}",
	"DELETE /api/clusters/{cluster}/pods/{namespace}/{pod}/delete",
	"POST /api/clusters/{cluster}/pods/{namespace}/{pod}/delete",
	"GET /api/clusters/{cluster}/pods/{namespace}/{pod}/logs",
	"GET /api/clusters/{cluster}/pods/{namespace}/{pod}/details",
	"GET /health",
	"GET /ready",
	"GET /metrics",
}

// routes configures all HTTP routes
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleDefault)

	// system endpoints (no rate limiting)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.withMiddleware(pattern, h))
	}
	handle("GET /api/clusters", s.handleClusters)
	handle("POST /api/clusters/display-name", s.handleDisplayName)
	handle("GET /api/clusters/{cluster}/nodes", s.handleNodes)
	handle("GET /api/clusters/{cluster}/nodegroups", s.handleNodeGroups)
	handle("GET /api/clusters/{cluster}/pods", s.handlePods)
	handle("GET /api/clusters/{cluster}/health", s.handleClusterHealth)
	handle("DELETE /api/clusters/{cluster}/pods/{namespace}/{pod}", s.handleDeletePod)
	handle("DELETE /api/clusters/{cluster}/pods/{namespace}/{pod}/delete", s.handleDeletePod)
	handle("POST /api/clusters/{cluster}/pods/{namespace}/{pod}/delete", s.handleDeletePod)
	handle("GET /api/clusters/{cluster}/pods/{namespace}/{pod}/logs", s.handlePodLogs)
	handle("GET /api/clusters/{cluster}/pods/{namespace}/{pod}/details", s.handlePodDetails)

	return mux
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handling default route",
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	)

	resp := struct {
		Name      string   `json:"name"`
		Version   string   `json:"version"`
		Ready     bool     `json:"ready"`
		Timestamp string   `json:"timestamp"`
		Routes    []string `json:"routes"`
	}{
		Name:      s.name,
		Version:   s.version,
		Ready:     s.isReady(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Routes:    routeIndex,
	}

	RespondJSON(w, http.StatusOK, resp)
}
