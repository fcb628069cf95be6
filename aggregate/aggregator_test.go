package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/Captain-Sangam/KubePeek/k8s"
	"github.com/Captain-Sangam/KubePeek/metrics"
	"github.com/Captain-Sangam/KubePeek/model"
	"github.com/stretchr/testify/assert"
	coreV1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
)

// stubProvider hands out the same clients for every cluster name.
type stubProvider struct {
	clients *k8s.Clients
	err     error
}

func (p *stubProvider) ClientsFor(ctx context.Context, cluster string) (*k8s.Clients, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.clients, nil
}

type stubMetrics struct {
	nodes []metrics.NodeMetrics
	pods  []metrics.PodMetrics
	err   error
}

func (s stubMetrics) NodeMetrics(context.Context) ([]metrics.NodeMetrics, error) {
	return s.nodes, s.err
}

func (s stubMetrics) PodMetrics(context.Context) ([]metrics.PodMetrics, error) {
	return s.pods, s.err
}

func newAggregator(source metrics.Source, objects ...runtime.Object) (*Aggregator, *fake.Clientset) {
	core := fake.NewSimpleClientset(objects...)
	provider := &stubProvider{clients: &k8s.Clients{
		Context: "test",
		Core:    core,
		Metrics: source,
	}}
	return New(provider), core
}

func testNode(name string, labels map[string]string, cpu, capMem, allocMem string) *coreV1.Node {
	return &coreV1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
		Status: coreV1.NodeStatus{
			Capacity: coreV1.ResourceList{
				coreV1.ResourceCPU:    resource.MustParse(cpu),
				coreV1.ResourceMemory: resource.MustParse(capMem),
			},
			Allocatable: coreV1.ResourceList{
				coreV1.ResourceCPU:    resource.MustParse(cpu),
				coreV1.ResourceMemory: resource.MustParse(allocMem),
			},
		},
	}
}

func testPod(namespace, name, node string, labels map[string]string) *coreV1.Pod {
	return &coreV1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, Labels: labels},
		Spec:       coreV1.PodSpec{NodeName: node},
		Status:     coreV1.PodStatus{Phase: coreV1.PodRunning},
	}
}

func nodeByName(t *testing.T, nodes []model.Node, name string) model.Node {
	t.Helper()
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
	}
	t.Fatalf("node %s not found", name)
	return model.Node{}
}

func TestIsolate(t *testing.T) {
	degraded := func() string { return "degraded" }

	tests := []struct {
		name     string
		build    func() (string, error)
		expected string
	}{
		{name: "success", build: func() (string, error) { return "ok", nil }, expected: "ok"},
		{name: "error", build: func() (string, error) { return "", errors.New("boom") }, expected: "degraded"},
		{name: "panic", build: func() (string, error) { panic("malformed labels") }, expected: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isolate("test", tt.name, tt.build, degraded))
		})
	}
}

func TestAggregator_ClientError(t *testing.T) {
	agg := New(&stubProvider{err: k8s.ErrNoUsableContext})

	_, err := agg.ListNodes(context.Background(), "missing")
	assert.ErrorIs(t, err, k8s.ErrNoUsableContext)

	_, err = agg.ListPods(context.Background(), "missing")
	assert.ErrorIs(t, err, k8s.ErrNoUsableContext)

	_, err = agg.ListNodeGroups(context.Background(), "missing")
	assert.ErrorIs(t, err, k8s.ErrNoUsableContext)
}

func TestAggregator_CancelledContext(t *testing.T) {
	agg, _ := newAggregator(metrics.Empty{},
		testNode("n1", nil, "4", "16Gi", "15Gi"),
		testPod("ns", "p1", "n1", nil),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nodes, err := agg.ListNodes(ctx, "test")
	assert.Error(t, err)
	assert.Nil(t, nodes)

	pods, err := agg.ListPods(ctx, "test")
	assert.Error(t, err)
	assert.Nil(t, pods)
}
