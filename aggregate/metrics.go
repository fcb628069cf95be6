package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kubepeek_aggregation_duration_seconds",
			Help:    "Time taken to build a cluster view",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"}, // nodes, nodegroups, pods
	)

	aggregationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubepeek_aggregation_total",
			Help: "Total number of aggregation attempts",
		},
		[]string{"operation", "status"}, // success or error
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kubepeek_fetch_duration_seconds",
			Help:    "Time taken by individual API fetches inside an aggregation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"fetch"}, // nodes, node_metrics, pods, pod_metrics
	)

	degradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubepeek_degraded_items_total",
			Help: "Total number of records replaced by a minimal record after a processing failure",
		},
		[]string{"kind"}, // node, pod, nodegroup
	)
)
