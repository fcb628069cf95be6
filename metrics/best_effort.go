package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fallbackTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kubepeek_metrics_fallback_total",
		Help: "Total number of metrics API calls that degraded to an empty result",
	},
	[]string{"kind"}, // node or pod
)

// HealthReporter receives the outcome of every call to a wrapped source,
// keyed by context name. A nil err is a success.
type HealthReporter interface {
	ReportMetrics(cluster string, err error)
}

// BestEffortSource wraps a Source so that failures produce empty results.
// Errors are logged, counted and passed to the reporter.
type BestEffortSource struct {
	source   Source
	name     string
	reporter HealthReporter
}

// BestEffort wraps src. A nil src behaves like Empty; a nil reporter
// discards outcomes.
func BestEffort(name string, src Source, reporter HealthReporter) *BestEffortSource {
	if src == nil {
		src = Empty{}
	}
	return &BestEffortSource{source: src, name: name, reporter: reporter}
}

// NodeMetrics never returns an error.
func (b *BestEffortSource) NodeMetrics(ctx context.Context) ([]NodeMetrics, error) {
	items, err := b.source.NodeMetrics(ctx)
	if err != nil {
		b.recordError("node", err)
		return []NodeMetrics{}, nil
	}
	b.report(nil)
	return items, nil
}

// PodMetrics never returns an error.
func (b *BestEffortSource) PodMetrics(ctx context.Context) ([]PodMetrics, error) {
	items, err := b.source.PodMetrics(ctx)
	if err != nil {
		b.recordError("pod", err)
		return []PodMetrics{}, nil
	}
	b.report(nil)
	return items, nil
}

func (b *BestEffortSource) recordError(kind string, err error) {
	slog.Warn("metrics unavailable, continuing without usage data",
		"source", b.name,
		"kind", kind,
		"error", err,
	)
	fallbackTotal.WithLabelValues(kind).Inc()
	b.report(err)
}

func (b *BestEffortSource) report(err error) {
	if b.reporter != nil {
		b.reporter.ReportMetrics(b.name, err)
	}
}
