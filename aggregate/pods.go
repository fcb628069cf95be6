package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Captain-Sangam/KubePeek/metrics"
	"github.com/Captain-Sangam/KubePeek/model"
	"github.com/Captain-Sangam/KubePeek/units"
	"golang.org/x/sync/errgroup"
	coreV1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

const (
	labelAppName    = "app.kubernetes.io/name"
	labelAppVersion = "app.kubernetes.io/version"
	labelHelmChart  = "helm.sh/chart"

	defaultNamespace = "default"
	unknownStatus    = "Unknown"
	ageNew           = "new"
)

// ListPods returns one record per pod in all namespaces, in API listing order.
func (a *Aggregator) ListPods(ctx context.Context, cluster string) (pods []model.Pod, err error) {
	start := time.Now()
	defer func() { observe("pods", start, err) }()

	clients, err := a.clients.ClientsFor(ctx, cluster)
	if err != nil {
		return nil, err
	}

	var (
		podList    *coreV1.PodList
		podMetrics []metrics.PodMetrics
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return timed("pods", func() error {
			list, err := clients.Core.CoreV1().Pods(metav1.NamespaceAll).List(gctx, metav1.ListOptions{})
			if err != nil {
				return fmt.Errorf("listing pods: %w", err)
			}
			podList = list
			return nil
		})
	})

	g.Go(func() error {
		return timed("pod_metrics", func() error {
			items, err := clients.Metrics.PodMetrics(gctx)
			if err != nil {
				slog.Warn("pod metrics unavailable", "cluster", clients.Context, "error", err)
				return nil
			}
			podMetrics = items
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

	usageByPod := make(map[types.NamespacedName]metrics.PodMetrics, len(podMetrics))
	for _, m := range podMetrics {
		usageByPod[types.NamespacedName{Namespace: m.Namespace, Name: m.Name}] = m
	}

	now := a.now()
	pods = make([]model.Pod, 0, len(podList.Items))
	for i := range podList.Items {
		pod := &podList.Items[i]
		key := types.NamespacedName{Namespace: pod.Namespace, Name: pod.Name}
		pods = append(pods, isolate("pod", key.String(),
			func() (model.Pod, error) {
				return buildPod(pod, usageByPod[key], now)
			},
			func() model.Pod { return minimalPod(pod) },
		))
	}

	slog.Debug("pods aggregated", "cluster", clients.Context, "count", len(pods))
	return pods, nil
}

func buildPod(pod *coreV1.Pod, usage metrics.PodMetrics, now time.Time) (model.Pod, error) {
	var cpu, mem float64
	for _, c := range usage.Containers {
		cpu += units.ParseCPU(orZero(c.Usage.CPU))
		mem += units.ParseMemory(orZero(c.Usage.Memory))
	}

	chart, version := helmInfo(pod.Labels)
	rec := minimalPod(pod)
	rec.HelmChart = chart
	rec.HelmVersion = version
	rec.CPUUsageCores = cpu
	rec.MemUsageBytes = mem
	rec.CPUUsage = units.FormatCPU(cpu)
	rec.MemoryUsage = units.FormatMemory(mem)
	rec.Age = AgeBucket(pod.CreationTimestamp, now)
	return rec, nil
}

func minimalPod(pod *coreV1.Pod) model.Pod {
	rec := model.Pod{
		Name:        pod.Name,
		Namespace:   pod.Namespace,
		Status:      string(pod.Status.Phase),
		NodeName:    pod.Spec.NodeName,
		CPUUsage:    "0",
		MemoryUsage: "0",
		Age:         unknown,
	}
	if rec.Name == "" {
		rec.Name = unknown
	}
	if rec.Namespace == "" {
		rec.Namespace = defaultNamespace
	}
	if rec.Status == "" {
		rec.Status = unknownStatus
	}
	if rec.NodeName == "" {
		rec.NodeName = unknown
	}
	return rec
}

// helmInfo reads chart and version from the recommended app labels, falling
// back to the "<chart>-<version>" helm.sh/chart label. Empty means absent.
func helmInfo(labels map[string]string) (chart, version string) {
	var segments []string
	if v := labels[labelHelmChart]; v != "" {
		segments = strings.Split(v, "-")
	}

	chart = labels[labelAppName]
	if chart == "" && len(segments) > 0 {
		chart = segments[0]
	}

	version = labels[labelAppVersion]
	if version == "" && len(segments) > 1 {
		version = segments[1]
	}
	return chart, version
}

// AgeBucket renders the time since created as "Nd", "Nh" or "new".
// A zero timestamp yields "unknown".
func AgeBucket(created metav1.Time, now time.Time) string {
	if created.IsZero() {
		return unknown
	}

	age := now.Sub(created.Time)
	if days := int(age / (24 * time.Hour)); days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	if hours := int(age / time.Hour); hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return ageNew
}
