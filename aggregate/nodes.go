package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Captain-Sangam/KubePeek/metrics"
	"github.com/Captain-Sangam/KubePeek/model"
	"github.com/Captain-Sangam/KubePeek/units"
	"golang.org/x/sync/errgroup"
	coreV1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	labelInstanceType     = "node.kubernetes.io/instance-type"
	labelInstanceTypeBeta = "beta.kubernetes.io/instance-type"

	unknown = "unknown"
)

// ListNodes returns one record per node, in API listing order.
func (a *Aggregator) ListNodes(ctx context.Context, cluster string) (nodes []model.Node, err error) {
	start := time.Now()
	defer func() { observe("nodes", start, err) }()

	clients, err := a.clients.ClientsFor(ctx, cluster)
	if err != nil {
		return nil, err
	}

	var (
		nodeList    *coreV1.NodeList
		nodeMetrics []metrics.NodeMetrics
		pods        []coreV1.Pod
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return timed("nodes", func() error {
			list, err := clients.Core.CoreV1().Nodes().List(gctx, metav1.ListOptions{})
			if err != nil {
				return fmt.Errorf("listing nodes: %w", err)
			}
			nodeList = list
			return nil
		})
	})

	g.Go(func() error {
		return timed("node_metrics", func() error {
			items, err := clients.Metrics.NodeMetrics(gctx)
			if err != nil {
				slog.Warn("node metrics unavailable", "cluster", clients.Context, "error", err)
				return nil
			}
			nodeMetrics = items
			return nil
		})
	})

	g.Go(func() error {
		return timed("pods", func() error {
			list, err := clients.Core.CoreV1().Pods(metav1.NamespaceAll).List(gctx, metav1.ListOptions{})
			if err != nil {
				slog.Warn("pods unavailable, node pod counts will be zero", "cluster", clients.Context, "error", err)
				return nil
			}
			pods = list.Items
			return nil
		})
	})

	waitErr := g.Wait()
	a.health.Report(clients.Context, waitErr)
	if waitErr != nil {
		return nil, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	usageByNode := make(map[string]metrics.Usage, len(nodeMetrics))
	for _, m := range nodeMetrics {
		usageByNode[m.Name] = m.Usage
	}

	podsByNode := make(map[string]int)
	for i := range pods {
		if name := pods[i].Spec.NodeName; name != "" {
			podsByNode[name]++
		}
	}

	nodes = make([]model.Node, 0, len(nodeList.Items))
	for i := range nodeList.Items {
		node := &nodeList.Items[i]
		nodes = append(nodes, isolate("node", node.Name,
			func() (model.Node, error) {
				return buildNode(node, usageByNode[node.Name], podsByNode[node.Name])
			},
			func() model.Node { return minimalNode(node.Name) },
		))
	}

	slog.Debug("nodes aggregated", "cluster", clients.Context, "count", len(nodes))
	return nodes, nil
}

func buildNode(node *coreV1.Node, usage metrics.Usage, pods int) (model.Node, error) {
	capCPU := units.ParseCPU(units.QuantityString(node.Status.Capacity, coreV1.ResourceCPU))
	capMem := units.ParseMemory(units.QuantityString(node.Status.Capacity, coreV1.ResourceMemory))
	allocCPU := units.ParseCPU(units.QuantityString(node.Status.Allocatable, coreV1.ResourceCPU))
	allocMem := units.ParseMemory(units.QuantityString(node.Status.Allocatable, coreV1.ResourceMemory))

	usedCPU := units.ParseCPU(orZero(usage.CPU))
	usedMem := units.ParseMemory(orZero(usage.Memory))

	// metrics sampling races capacity changes and can report over-capacity usage
	usedCPU = math.Min(usedCPU, capCPU)
	usedMem = math.Min(usedMem, allocMem)

	return model.Node{
		Name:         node.Name,
		InstanceType: instanceType(node.Labels),
		Tags:         filterTags(node.Labels),
		Capacity:     resources(capCPU, capMem),
		Allocatable:  resources(allocCPU, allocMem),
		Usage:        resources(usedCPU, usedMem),
		Pods:         pods,
	}, nil
}

func minimalNode(name string) model.Node {
	if name == "" {
		name = unknown
	}
	return model.Node{
		Name:         name,
		InstanceType: unknown,
		Tags:         map[string]string{},
		Capacity:     resources(0, 0),
		Allocatable:  resources(0, 0),
		Usage:        resources(0, 0),
	}
}

func resources(cpu, mem float64) model.Resources {
	return model.Resources{
		CPUCores: cpu,
		MemBytes: mem,
		CPU:      units.FormatCPU(cpu),
		Memory:   units.FormatMemory(mem),
	}
}

func instanceType(labels map[string]string) string {
	if v := labels[labelInstanceType]; v != "" {
		return v
	}
	if v := labels[labelInstanceTypeBeta]; v != "" {
		return v
	}
	return unknown
}

// filterTags drops Kubernetes-internal labels and the instance-type labels.
func filterTags(labels map[string]string) map[string]string {
	tags := make(map[string]string, len(labels))
	for k, v := range labels {
		if strings.HasPrefix(k, "kubernetes.io/") ||
			strings.HasPrefix(k, "k8s.io/") ||
			strings.Contains(k, "instance-type") {
			continue
		}
		tags[k] = v
	}
	return tags
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
