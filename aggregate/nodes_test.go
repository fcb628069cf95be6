package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/Captain-Sangam/KubePeek/metrics"
	"github.com/Captain-Sangam/KubePeek/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	k8stesting "k8s.io/client-go/testing"
)

func TestListNodes(t *testing.T) {
	source := stubMetrics{nodes: []metrics.NodeMetrics{
		{Name: "worker-1", Usage: metrics.Usage{CPU: "1500m", Memory: "4Gi"}},
		{Name: "worker-2", Usage: metrics.Usage{CPU: "4500m", Memory: "20Gi"}},
	}}

	agg, _ := newAggregator(source,
		testNode("worker-1", map[string]string{
			"node.kubernetes.io/instance-type": "m5.xlarge",
			"kubernetes.io/hostname":           "worker-1",
			"k8s.io/cloud-provider-aws":        "x",
			"eks.amazonaws.com/nodegroup":      "workers",
			"topology.kubernetes.io/zone":      "us-east-1a",
		}, "4", "16Gi", "15Gi"),
		testNode("worker-2", map[string]string{
			"beta.kubernetes.io/instance-type": "m5.large",
		}, "4", "16Gi", "15Gi"),
		testNode("bare", nil, "2", "8Gi", "7Gi"),
		testPod("default", "a", "worker-1", nil),
		testPod("kube-system", "b", "worker-1", nil),
		testPod("default", "c", "worker-2", nil),
		testPod("default", "pending", "", nil),
	)

	nodes, err := agg.ListNodes(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	w1 := nodeByName(t, nodes, "worker-1")
	assert.Equal(t, "m5.xlarge", w1.InstanceType)
	assert.Equal(t, map[string]string{
		"eks.amazonaws.com/nodegroup": "workers",
		"topology.kubernetes.io/zone": "us-east-1a",
	}, w1.Tags)
	assert.Equal(t, 4.0, w1.Capacity.CPUCores)
	assert.Equal(t, 16*units.Gi, w1.Capacity.MemBytes)
	assert.Equal(t, 15*units.Gi, w1.Allocatable.MemBytes)
	assert.Equal(t, 1.5, w1.Usage.CPUCores)
	assert.Equal(t, "1.50", w1.Usage.CPU)
	assert.Equal(t, "4Gi", w1.Usage.Memory)
	assert.Equal(t, 2, w1.Pods)

	w2 := nodeByName(t, nodes, "worker-2")
	assert.Equal(t, "m5.large", w2.InstanceType)
	assert.Empty(t, w2.Tags)
	assert.Equal(t, 4.0, w2.Usage.CPUCores, "cpu usage is clamped to capacity")
	assert.Equal(t, 15*units.Gi, w2.Usage.MemBytes, "memory usage is clamped to allocatable")
	assert.Equal(t, 1, w2.Pods)

	bare := nodeByName(t, nodes, "bare")
	assert.Equal(t, "unknown", bare.InstanceType)
	assert.Equal(t, 0.0, bare.Usage.CPUCores)
	assert.Equal(t, "0", bare.Usage.CPU)
	assert.Equal(t, 0, bare.Pods)

	for _, n := range nodes {
		assert.LessOrEqual(t, n.Usage.CPUCores, n.Capacity.CPUCores)
		assert.LessOrEqual(t, n.Usage.MemBytes, n.Allocatable.MemBytes)
	}
}

func TestListNodes_MetricsUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		source metrics.Source
	}{
		{name: "raw error", source: stubMetrics{err: errors.New("metrics api not available")}},
		{name: "best effort", source: metrics.BestEffort("test", stubMetrics{err: errors.New("503")}, nil)},
		{name: "empty", source: metrics.Empty{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, _ := newAggregator(tt.source, testNode("n1", nil, "4", "16Gi", "15Gi"))

			nodes, err := agg.ListNodes(context.Background(), "test")
			require.NoError(t, err)
			require.Len(t, nodes, 1)
			assert.Equal(t, 0.0, nodes[0].Usage.CPUCores)
			assert.Equal(t, 0.0, nodes[0].Usage.MemBytes)
			assert.Equal(t, 4.0, nodes[0].Capacity.CPUCores)
		})
	}
}

func TestListNodes_NodeListingFails(t *testing.T) {
	agg, core := newAggregator(metrics.Empty{})
	core.PrependReactor("list", "nodes", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("connection refused")
	})

	nodes, err := agg.ListNodes(context.Background(), "test")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "listing nodes")
	assert.Nil(t, nodes)
}

func TestListNodes_PodListingFails(t *testing.T) {
	agg, core := newAggregator(metrics.Empty{},
		testNode("n1", nil, "4", "16Gi", "15Gi"),
		testPod("default", "a", "n1", nil),
	)
	core.PrependReactor("list", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("forbidden")
	})

	nodes, err := agg.ListNodes(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 0, nodes[0].Pods)
}

func TestListNodes_Idempotent(t *testing.T) {
	source := stubMetrics{nodes: []metrics.NodeMetrics{
		{Name: "n1", Usage: metrics.Usage{CPU: "250m", Memory: "512Mi"}},
	}}
	agg, _ := newAggregator(source, testNode("n1", map[string]string{"agentpool": "pool1"}, "2", "8Gi", "7Gi"))

	first, err := agg.ListNodes(context.Background(), "test")
	require.NoError(t, err)
	second, err := agg.ListNodes(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFilterTags(t *testing.T) {
	tests := []struct {
		name     string
		labels   map[string]string
		expected map[string]string
	}{
		{name: "nil labels", labels: nil, expected: map[string]string{}},
		{
			name: "drops internal prefixes",
			labels: map[string]string{
				"kubernetes.io/os":      "linux",
				"k8s.io/role":           "worker",
				"beta.kubernetes.io/os": "linux",
				"team":                  "payments",
			},
			expected: map[string]string{
				"beta.kubernetes.io/os": "linux",
				"team":                  "payments",
			},
		},
		{
			name: "drops instance type labels",
			labels: map[string]string{
				"node.kubernetes.io/instance-type": "m5.large",
				"beta.kubernetes.io/instance-type": "m5.large",
				"custom/instance-type-family":      "m5",
			},
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, filterTags(tt.labels))
		})
	}
}

func TestMinimalNode(t *testing.T) {
	n := minimalNode("broken")
	assert.Equal(t, "broken", n.Name)
	assert.Equal(t, "unknown", n.InstanceType)
	assert.NotNil(t, n.Tags)
	assert.Equal(t, "0", n.Usage.CPU)
	assert.Equal(t, "0", n.Capacity.Memory)
	assert.Equal(t, 0, n.Pods)
}

type recordingReporter struct {
	clusters []string
	errs     []error
}

func (r *recordingReporter) Report(cluster string, err error) {
	r.clusters = append(r.clusters, cluster)
	r.errs = append(r.errs, err)
}

func TestListNodes_ReportsHealth(t *testing.T) {
	agg, core := newAggregator(metrics.Empty{}, testNode("n1", nil, "4", "16Gi", "15Gi"))
	rep := &recordingReporter{}
	WithHealthReporter(rep)(agg)

	_, err := agg.ListNodes(context.Background(), "loaded-context")
	require.NoError(t, err)

	core.PrependReactor("list", "nodes", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("connection refused")
	})
	_, err = agg.ListNodes(context.Background(), "loaded-context")
	require.Error(t, err)

	// reports use the resolved context name
	assert.Equal(t, []string{"test", "test"}, rep.clusters)
	assert.NoError(t, rep.errs[0])
	assert.ErrorContains(t, rep.errs[1], "connection refused")
}
