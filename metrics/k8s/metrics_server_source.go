package k8s

import (
	"context"
	"fmt"

	"github.com/Captain-Sangam/KubePeek/metrics"
	"github.com/Captain-Sangam/KubePeek/units"
	coreV1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/rest"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// MetricsServerSource implements metrics.Source using the metrics.k8s.io
// API served by the Kubernetes Metrics Server.
type MetricsServerSource struct {
	client metricsclient.Interface
}

// NewMetricsServerSource creates a MetricsServerSource from a typed metrics clientset.
func NewMetricsServerSource(client metricsclient.Interface) *MetricsServerSource {
	return &MetricsServerSource{client: client}
}

// NewMetricsServerSourceForConfig builds the metrics clientset from a REST config.
func NewMetricsServerSourceForConfig(config *rest.Config) (*MetricsServerSource, error) {
	client, err := metricsclient.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("metrics server: %w", err)
	}
	return NewMetricsServerSource(client), nil
}

// NodeMetrics lists usage for all nodes.
func (m *MetricsServerSource) NodeMetrics(ctx context.Context) ([]metrics.NodeMetrics, error) {
	list, err := m.client.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("metrics server: %w", err)
	}

	result := make([]metrics.NodeMetrics, 0, len(list.Items))
	for i := range list.Items {
		result = append(result, convertNodeMetrics(&list.Items[i]))
	}
	return result, nil
}

// PodMetrics lists usage for pods in all namespaces.
func (m *MetricsServerSource) PodMetrics(ctx context.Context) ([]metrics.PodMetrics, error) {
	list, err := m.client.MetricsV1beta1().PodMetricses(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("metrics server: %w", err)
	}

	result := make([]metrics.PodMetrics, 0, len(list.Items))
	for i := range list.Items {
		result = append(result, convertPodMetrics(&list.Items[i]))
	}
	return result, nil
}

func convertNodeMetrics(nm *metricsv1beta1.NodeMetrics) metrics.NodeMetrics {
	return metrics.NodeMetrics{
		Name:  nm.Name,
		Usage: convertUsage(nm.Usage),
	}
}

func convertPodMetrics(pm *metricsv1beta1.PodMetrics) metrics.PodMetrics {
	containers := make([]metrics.ContainerMetrics, 0, len(pm.Containers))
	for _, c := range pm.Containers {
		containers = append(containers, metrics.ContainerMetrics{
			Name:  c.Name,
			Usage: convertUsage(c.Usage),
		})
	}

	return metrics.PodMetrics{
		Namespace:  pm.Namespace,
		Name:       pm.Name,
		Containers: containers,
	}
}

func convertUsage(list coreV1.ResourceList) metrics.Usage {
	return metrics.Usage{
		CPU:    units.QuantityString(list, coreV1.ResourceCPU),
		Memory: units.QuantityString(list, coreV1.ResourceMemory),
	}
}
