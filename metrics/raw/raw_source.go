// Package raw reads the metrics.k8s.io API with plain GETs on absolute paths
// instead of the typed metrics calls. Certificate verification is disabled
// for these requests, so the source is only used when configured.
package raw

import (
	"context"
	"fmt"
	"time"

	"github.com/Captain-Sangam/KubePeek/metrics"
	"github.com/Captain-Sangam/KubePeek/units"
	coreV1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

const (
	nodesPath = "/apis/metrics.k8s.io/v1beta1/nodes"
	podsPath  = "/apis/metrics.k8s.io/v1beta1/pods"

	defaultTimeout = 10 * time.Second
)

// Source implements metrics.Source over raw HTTPS requests.
type Source struct {
	restClient rest.Interface
	timeout    time.Duration
}

// New builds a Source from a copy of config with TLS verification turned off.
func New(config *rest.Config, timeout time.Duration) (*Source, error) {
	insecure := rest.CopyConfig(config)
	insecure.TLSClientConfig.Insecure = true
	insecure.TLSClientConfig.CAData = nil
	insecure.TLSClientConfig.CAFile = ""

	clientset, err := metricsclient.NewForConfig(insecure)
	if err != nil {
		return nil, fmt.Errorf("raw metrics: creating client: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Source{
		restClient: clientset.MetricsV1beta1().RESTClient(),
		timeout:    timeout,
	}, nil
}

func (s *Source) NodeMetrics(ctx context.Context) ([]metrics.NodeMetrics, error) {
	var list metricsv1beta1.NodeMetricsList
	if err := s.get(ctx, nodesPath, &list); err != nil {
		return nil, err
	}

	result := make([]metrics.NodeMetrics, 0, len(list.Items))
	for _, item := range list.Items {
		result = append(result, metrics.NodeMetrics{
			Name:  item.Name,
			Usage: usage(item.Usage),
		})
	}
	return result, nil
}

func (s *Source) PodMetrics(ctx context.Context) ([]metrics.PodMetrics, error) {
	var list metricsv1beta1.PodMetricsList
	if err := s.get(ctx, podsPath, &list); err != nil {
		return nil, err
	}

	result := make([]metrics.PodMetrics, 0, len(list.Items))
	for _, item := range list.Items {
		containers := make([]metrics.ContainerMetrics, 0, len(item.Containers))
		for _, c := range item.Containers {
			containers = append(containers, metrics.ContainerMetrics{
				Name:  c.Name,
				Usage: usage(c.Usage),
			})
		}
		result = append(result, metrics.PodMetrics{
			Namespace:  item.Namespace,
			Name:       item.Name,
			Containers: containers,
		})
	}
	return result, nil
}

func (s *Source) get(ctx context.Context, path string, into runtime.Object) error {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.restClient.Get().AbsPath(path).Do(reqCtx).Into(into); err != nil {
		return fmt.Errorf("raw metrics: GET %s: %w", path, err)
	}
	return nil
}

func usage(list coreV1.ResourceList) metrics.Usage {
	return metrics.Usage{
		CPU:    units.QuantityString(list, coreV1.ResourceCPU),
		Memory: units.QuantityString(list, coreV1.ResourceMemory),
	}
}
