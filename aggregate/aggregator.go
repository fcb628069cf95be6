// Package aggregate joins Kubernetes objects with metrics API usage into the
// node, node group and pod records served by the dashboard.
//
// Every call reads the cluster afresh. Primary listings (nodes, pods) fail
// the call; metrics and secondary listings degrade to empty collections;
// a failure while building one record yields a minimal record for that item.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Captain-Sangam/KubePeek/k8s"
)

// ClientProvider resolves a cluster name to API clients.
type ClientProvider interface {
	ClientsFor(ctx context.Context, cluster string) (*k8s.Clients, error)
}

// HealthReporter receives the outcome of every primary listing, keyed by
// the resolved context name. A nil err is a success.
type HealthReporter interface {
	Report(cluster string, err error)
}

type noopReporter struct{}

func (noopReporter) Report(string, error) {}

// Aggregator builds display records for a cluster.
type Aggregator struct {
	clients ClientProvider
	rules   []GroupRule
	now     func() time.Time
	health  HealthReporter
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithGroupRules replaces the node grouping rules.
func WithGroupRules(rules []GroupRule) Option {
	return func(a *Aggregator) {
		a.rules = rules
	}
}

// WithClock sets the time source used for pod age buckets.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithHealthReporter sets where listing outcomes are reported.
func WithHealthReporter(r HealthReporter) Option {
	return func(a *Aggregator) {
		a.health = r
	}
}

func New(clients ClientProvider, opts ...Option) *Aggregator {
	a := &Aggregator{
		clients: clients,
		rules:   DefaultGroupRules(),
		now:     time.Now,
		health:  noopReporter{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// observe records duration and outcome of one aggregation.
func observe(operation string, start time.Time, err error) {
	aggregationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	aggregationTotal.WithLabelValues(operation, status).Inc()
}

func timed(fetch string, fn func() error) error {
	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(fetch).Observe(time.Since(start).Seconds())
	}()
	return fn()
}

// isolate runs build and substitutes degraded() when build errors or panics.
func isolate[T any](kind, name string, build func() (T, error), degraded func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered while building record",
				"kind", kind,
				"name", name,
				"panic", fmt.Sprint(r),
			)
			degradedTotal.WithLabelValues(kind).Inc()
			out = degraded()
		}
	}()

	v, err := build()
	if err != nil {
		slog.Warn("failed to build record, using minimal record",
			"kind", kind,
			"name", name,
			"error", err,
		)
		degradedTotal.WithLabelValues(kind).Inc()
		return degraded()
	}
	return v
}
