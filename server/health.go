package server

import (
	"net/http"
	"time"

	"github.com/Captain-Sangam/KubePeek/health"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleReady handles GET /ready
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.isReady() {
		RespondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now(),
			Reason:    "service is initializing",
		})
		return
	}

	RespondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
	})
}

// handleClusterHealth reports how recent listings against a cluster went.
// Clusters that were never queried report state Unknown.
func (s *Server) handleClusterHealth(w http.ResponseWriter, r *http.Request) {
	cluster := s.clusters.ResolveContextAlias(r.PathValue("cluster"))

	if s.health != nil {
		if st, ok := s.health.Status(cluster); ok {
			RespondJSON(w, http.StatusOK, st)
			return
		}
	}
	RespondJSON(w, http.StatusOK, health.Status{Cluster: cluster, State: "Unknown"})
}
