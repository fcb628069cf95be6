// Package health tracks the reachability of each cluster's API server from
// the outcome of the listings made on behalf of dashboard requests.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clusterAPIState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kubepeek_cluster_api_state",
			Help: "API server state per cluster (0 healthy, 1 unhealthy, 2 disconnected)",
		},
		[]string{"cluster"},
	)

	clusterMetricsAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kubepeek_cluster_metrics_available",
			Help: "Whether the last metrics API call per cluster succeeded (1) or failed (0)",
		},
		[]string{"cluster"},
	)
)

// APIState represents the current health state of a cluster's API server
type APIState int

const (
	APIHealthy      APIState = iota // last listings succeeded
	APIUnhealthy                    // recent listings failed
	APIDisconnected                 // failed more than maxFailures times in a row
)

func (s APIState) String() string {
	switch s {
	case APIHealthy:
		return "Healthy"
	case APIUnhealthy:
		return "Unhealthy"
	case APIDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Status is a point-in-time view of one cluster's tracker. Failures counts
// consecutive failed listings; any success resets it.
type Status struct {
	Cluster     string         `json:"cluster"`
	State       string         `json:"state"`
	Failures    int            `json:"failures"`
	LastError   string         `json:"lastError,omitempty"`
	LastSuccess *time.Time     `json:"lastSuccess,omitempty"`
	LastFailure *time.Time     `json:"lastFailure,omitempty"`
	Metrics     *MetricsStatus `json:"metrics,omitempty"`
}

// MetricsStatus describes the last call to the cluster's metrics API.
type MetricsStatus struct {
	Available   bool      `json:"available"`
	LastError   string    `json:"lastError,omitempty"`
	LastChecked time.Time `json:"lastChecked"`
}

// APIHealthTracker follows one cluster. It turns unhealthy on the first
// failure, disconnected after more than maxFailures consecutive failures,
// and healthy again only after requiredConsecOK successes at least
// minUnhealthyTime after the last failure.
type APIHealthTracker struct {
	cluster          string
	state            APIState
	failures         int
	maxFailures      int
	lastError        error
	lastSuccessTime  time.Time
	lastErrorTime    time.Time
	consecutiveOK    int
	requiredConsecOK int
	minUnhealthyTime time.Duration
	now              func() time.Time
	mu               sync.RWMutex

	metricsErr     error
	metricsChecked time.Time

	onStateChange func(cluster string, state APIState)
}

// NewAPIHealthTracker creates a tracker in the healthy state.
func NewAPIHealthTracker(cluster string, onStateChange func(string, APIState)) *APIHealthTracker {
	return &APIHealthTracker{
		cluster:          cluster,
		state:            APIHealthy,
		maxFailures:      5,
		requiredConsecOK: 3,
		minUnhealthyTime: 10 * time.Second,
		now:              time.Now,
		onStateChange:    onStateChange,
	}
}

// ReportSuccess records a successful listing.
func (h *APIHealthTracker) ReportSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastSuccessTime = h.now()
	h.lastError = nil
	h.failures = 0

	if h.state == APIHealthy {
		h.consecutiveOK = h.requiredConsecOK
		return
	}

	// successes right after a failure may come from cached responses
	if !h.lastErrorTime.IsZero() && h.now().Sub(h.lastErrorTime) < h.minUnhealthyTime {
		return
	}

	h.consecutiveOK++
	if h.consecutiveOK >= h.requiredConsecOK {
		h.setState(APIHealthy)
	}
}

// ReportError records a failed listing.
func (h *APIHealthTracker) ReportError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastError = err
	h.lastErrorTime = h.now()
	h.consecutiveOK = 0
	h.failures++

	switch h.state {
	case APIHealthy:
		h.setState(APIUnhealthy)
	case APIUnhealthy:
		if h.failures > h.maxFailures {
			h.setState(APIDisconnected)
		}
	}
}

// setState must be called with mu held.
func (h *APIHealthTracker) setState(state APIState) {
	if h.state == state {
		return
	}
	h.state = state
	if h.onStateChange != nil {
		h.onStateChange(h.cluster, state)
	}
}

// ReportMetrics records the outcome of a metrics API call. It does not
// affect the API state.
func (h *APIHealthTracker) ReportMetrics(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metricsErr = err
	h.metricsChecked = h.now()
}

// Status returns a snapshot of the tracker.
func (h *APIHealthTracker) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := Status{
		Cluster:  h.cluster,
		State:    h.state.String(),
		Failures: h.failures,
	}
	if h.lastError != nil {
		st.LastError = h.lastError.Error()
	}
	if !h.lastSuccessTime.IsZero() {
		t := h.lastSuccessTime
		st.LastSuccess = &t
	}
	if !h.lastErrorTime.IsZero() {
		t := h.lastErrorTime
		st.LastFailure = &t
	}
	if !h.metricsChecked.IsZero() {
		st.Metrics = &MetricsStatus{
			Available:   h.metricsErr == nil,
			LastChecked: h.metricsChecked,
		}
		if h.metricsErr != nil {
			st.Metrics.LastError = h.metricsErr.Error()
		}
	}
	return st
}

// Monitor keeps one tracker per cluster, created on first report.
type Monitor struct {
	mu       sync.Mutex
	trackers map[string]*APIHealthTracker
	now      func() time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{
		trackers: make(map[string]*APIHealthTracker),
		now:      time.Now,
	}
}

func (m *Monitor) tracker(cluster string) *APIHealthTracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trackers[cluster]
	if !ok {
		t = NewAPIHealthTracker(cluster, logStateChange)
		t.now = m.now
		m.trackers[cluster] = t
		clusterAPIState.WithLabelValues(cluster).Set(float64(APIHealthy))
	}
	return t
}

// Report records the outcome of a primary listing against cluster. A nil
// err is a success. Cancellation by the caller says nothing about the
// cluster and is ignored.
func (m *Monitor) Report(cluster string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	t := m.tracker(cluster)
	if err != nil {
		t.ReportError(err)
	} else {
		t.ReportSuccess()
	}
}

// ReportMetrics records the outcome of a metrics API call against cluster.
func (m *Monitor) ReportMetrics(cluster string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	available := 1.0
	if err != nil {
		available = 0
	}
	clusterMetricsAvailable.WithLabelValues(cluster).Set(available)
	m.tracker(cluster).ReportMetrics(err)
}

// Status returns the snapshot for cluster, or false if it was never queried.
func (m *Monitor) Status(cluster string) (Status, bool) {
	m.mu.Lock()
	t, ok := m.trackers[cluster]
	m.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	return t.Status(), true
}

// All returns every tracked cluster sorted by name.
func (m *Monitor) All() []Status {
	m.mu.Lock()
	trackers := make([]*APIHealthTracker, 0, len(m.trackers))
	for _, t := range m.trackers {
		trackers = append(trackers, t)
	}
	m.mu.Unlock()

	out := make([]Status, 0, len(trackers))
	for _, t := range trackers {
		out = append(out, t.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cluster < out[j].Cluster })
	return out
}

func logStateChange(cluster string, state APIState) {
	clusterAPIState.WithLabelValues(cluster).Set(float64(state))
	if state == APIHealthy {
		slog.Info("cluster API recovered", "cluster", cluster)
		return
	}
	slog.Warn("cluster API degraded", "cluster", cluster, "state", state.String())
}
