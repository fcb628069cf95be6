package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Captain-Sangam/KubePeek/model"
)

// displayNameRequest is the body of POST /api/clusters/display-name.
type displayNameRequest struct {
	ClusterName string `json:"clusterName"`
	DisplayName string `json:"displayName"`
}

type displayNameResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ClusterName string `json:"clusterName"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	clusters := s.clusters.ListClusters()
	if clusters == nil {
		clusters = []model.Cluster{}
	}
	RespondJSON(w, http.StatusOK, clusters)
}

// handleDisplayName acknowledges a display name change. Names are stored
// by the browser, so the request is only validated and echoed.
func (s *Server) handleDisplayName(w http.ResponseWriter, r *http.Request) {
	var req displayNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Invalid request body", false, map[string]any{"error": err.Error()})
		return
	}
	if req.ClusterName == "" {
		WriteError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Cluster name is required", false, nil)
		return
	}

	RespondJSON(w, http.StatusOK, displayNameResponse{
		Success:     true,
		Message:     "Display name updated",
		ClusterName: req.ClusterName,
		DisplayName: req.DisplayName,
	})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	cluster := r.PathValue("cluster")
	nodes, err := s.aggregator.ListNodes(r.Context(), cluster)
	if err != nil {
		slog.Error("failed to list nodes", "cluster", cluster, "error", err)
		writeAggregationError(w, r, cluster, err)
		return
	}
	RespondJSON(w, http.StatusOK, orEmpty(nodes))
}

func (s *Server) handleNodeGroups(w http.ResponseWriter, r *http.Request) {
	cluster := r.PathValue("cluster")
	groups, err := s.aggregator.ListNodeGroups(r.Context(), cluster)
	if err != nil {
		slog.Error("failed to list node groups", "cluster", cluster, "error", err)
		writeAggregationError(w, r, cluster, err)
		return
	}
	RespondJSON(w, http.StatusOK, orEmpty(groups))
}

func (s *Server) handlePods(w http.ResponseWriter, r *http.Request) {
	cluster := r.PathValue("cluster")
	pods, err := s.aggregator.ListPods(r.Context(), cluster)
	if err != nil {
		slog.Error("failed to list pods", "cluster", cluster, "error", err)
		writeAggregationError(w, r, cluster, err)
		return
	}
	RespondJSON(w, http.StatusOK, orEmpty(pods))
}

func (s *Server) handleDeletePod(w http.ResponseWriter, r *http.Request) {
	res := s.pods.Delete(r.Context(), r.PathValue("cluster"), r.PathValue("namespace"), r.PathValue("pod"))
	RespondJSON(w, resultStatus(res.Success, res.StatusCode), res)
}

func (s *Server) handlePodLogs(w http.ResponseWriter, r *http.Request) {
	var tailLines *int64
	if tail := r.URL.Query().Get("tail"); tail != "" {
		n, err := strconv.ParseInt(tail, 10, 64)
		if err != nil || n < 0 {
			RespondJSON(w, http.StatusBadRequest, model.LogsResult{
				Message: "Invalid tail parameter: " + tail,
			})
			return
		}
		tailLines = &n
	}

	res := s.pods.Logs(r.Context(), r.PathValue("cluster"), r.PathValue("namespace"), r.PathValue("pod"),
		r.URL.Query().Get("container"), tailLines)
	RespondJSON(w, resultStatus(res.Success, res.StatusCode), res)
}

// handlePodDetails serves the pod object, as YAML when format=yaml.
func (s *Server) handlePodDetails(w http.ResponseWriter, r *http.Request) {
	res := s.pods.Details(r.Context(), r.PathValue("cluster"), r.PathValue("namespace"), r.PathValue("pod"))
	status := resultStatus(res.Success, res.StatusCode)
	if res.Success && r.URL.Query().Get("format") == "yaml" {
		RespondYAML(w, status, res.Details)
		return
	}
	RespondJSON(w, status, res)
}

func resultStatus(success bool, code int) int {
	switch {
	case code != 0:
		return code
	case success:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
