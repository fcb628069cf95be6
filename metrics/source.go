package metrics

import (
	"context"
)

// Source retrieves point-in-time usage from a cluster's metrics API.
// Quantities are kept as the strings the API reports; callers normalize
// them with the units package.
type Source interface {
	// NodeMetrics returns usage for every node the metrics API knows about.
	NodeMetrics(ctx context.Context) ([]NodeMetrics, error)

	// PodMetrics returns per-container usage for pods in all namespaces.
	PodMetrics(ctx context.Context) ([]PodMetrics, error)
}

// Usage holds raw CPU and memory quantities, e.g. "250m" and "128Mi".
type Usage struct {
	CPU    string `json:"cpu"`
	Memory string `json:"memory"`
}

type NodeMetrics struct {
	Name  string
	Usage Usage
}

type PodMetrics struct {
	Namespace  string
	Name       string
	Containers []ContainerMetrics
}

type ContainerMetrics struct {
	Name  string
	Usage Usage
}

// SourceType constants for the supported metrics sources
const (
	SourceTypeMetricsServer = "metrics-server"
	SourceTypeRaw           = "raw"
	SourceTypeNone          = "none"
)

// Empty is a Source for clusters without a metrics API.
type Empty struct{}

func (Empty) NodeMetrics(context.Context) ([]NodeMetrics, error) { return nil, nil }
func (Empty) PodMetrics(context.Context) ([]PodMetrics, error)   { return nil, nil }
