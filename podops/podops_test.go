package podops

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Captain-Sangam/KubePeek/k8s"
	"github.com/Captain-Sangam/KubePeek/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	coreV1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

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

var podsResource = schema.GroupResource{Resource: "pods"}

func newOps(objects ...runtime.Object) (*Operations, *fake.Clientset) {
	core := fake.NewSimpleClientset(objects...)
	ops := New(&stubProvider{clients: &k8s.Clients{
		Context: "test",
		Core:    core,
		Metrics: metrics.Empty{},
	}})
	return ops, core
}

func testPod(containers ...string) *coreV1.Pod {
	pod := &coreV1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: "shop", Name: "web-0"},
	}
	for _, c := range containers {
		pod.Spec.Containers = append(pod.Spec.Containers, coreV1.Container{Name: c})
	}
	return pod
}

func TestMissingParams(t *testing.T) {
	tests := []struct {
		name      string
		cluster   string
		namespace string
		pod       string
		expected  string
	}{
		{name: "all present", cluster: "c", namespace: "ns", pod: "p", expected: ""},
		{name: "all missing", expected: "Missing required parameters: cluster namespace podName"},
		{name: "namespace missing", cluster: "c", pod: "p", expected: "Missing required parameters: namespace"},
		{name: "pod missing", cluster: "c", namespace: "ns", expected: "Missing required parameters: podName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := missingParams(tt.cluster, tt.namespace, tt.pod)
			assert.Equal(t, tt.expected, msg)
			assert.Equal(t, tt.expected == "", ok)
		})
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedMsg  string
		expectedCode int
	}{
		{
			name:         "not found",
			err:          apierrors.NewNotFound(podsResource, "web-0"),
			expectedMsg:  "Pod shop/web-0 not found",
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "forbidden",
			err:          apierrors.NewForbidden(podsResource, "web-0", errors.New("rbac")),
			expectedMsg:  "Access denied for pod shop/web-0",
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "other api status",
			err:          apierrors.NewServiceUnavailable("etcd down"),
			expectedMsg:  "Kubernetes API error (503): etcd down",
			expectedCode: http.StatusServiceUnavailable,
		},
		{
			name:         "plain error",
			err:          errors.New("dial tcp: connection refused"),
			expectedMsg:  "dial tcp: connection refused",
			expectedCode: http.StatusInternalServerError,
		},
		{
			name:         "deadline",
			err:          context.DeadlineExceeded,
			expectedMsg:  "context deadline exceeded",
			expectedCode: http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, code := translate(tt.err, "shop", "web-0", "Access denied for pod %s/%s")
			assert.Equal(t, tt.expectedMsg, msg)
			assert.Equal(t, tt.expectedCode, code)
		})
	}
}

func TestDelete(t *testing.T) {
	ops, core := newOps(testPod("app"))

	res := ops.Delete(context.Background(), "test", "shop", "web-0")
	assert.True(t, res.Success)
	assert.Equal(t, "Pod shop/web-0 deleted successfully", res.Message)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	_, err := core.CoreV1().Pods("shop").Get(context.Background(), "web-0", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))

	res = ops.Delete(context.Background(), "test", "shop", "web-0")
	assert.False(t, res.Success)
	assert.Equal(t, "Pod shop/web-0 not found", res.Message)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDelete_Forbidden(t *testing.T) {
	ops, core := newOps(testPod("app"))
	core.PrependReactor("delete", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(podsResource, "web-0", errors.New("rbac"))
	})

	res := ops.Delete(context.Background(), "test", "shop", "web-0")
	assert.False(t, res.Success)
	assert.Equal(t, "Access denied for pod shop/web-0", res.Message)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestDelete_ClientError(t *testing.T) {
	ops := New(&stubProvider{err: k8s.ErrNoUsableContext})

	res := ops.Delete(context.Background(), "gone", "shop", "web-0")
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestLogs_SingleContainer(t *testing.T) {
	ops, _ := newOps(testPod("app"))

	var got *coreV1.PodLogOptions
	ops.readLogs = func(ctx context.Context, core kubernetes.Interface, namespace, name string, opts *coreV1.PodLogOptions) (string, error) {
		got = opts
		return "line1\nline2", nil
	}

	tail := int64(50)
	res := ops.Logs(context.Background(), "test", "shop", "web-0", "app", &tail)
	require.True(t, res.Success)
	assert.Equal(t, "line1\nline2", res.Logs)
	require.NotNil(t, got)
	assert.Equal(t, "app", got.Container)
	assert.Equal(t, int64(50), *got.TailLines)
}

func TestLogs_FakeClient(t *testing.T) {
	ops, _ := newOps(testPod("app"))

	res := ops.Logs(context.Background(), "test", "shop", "web-0", "app", nil)
	require.True(t, res.Success)
	assert.Equal(t, "fake logs", res.Logs)
}

func TestLogs_AllContainers(t *testing.T) {
	ops, _ := newOps(testPod("app", "sidecar"))
	ops.readLogs = func(ctx context.Context, core kubernetes.Interface, namespace, name string, opts *coreV1.PodLogOptions) (string, error) {
		if opts.Container == "sidecar" {
			return "", errors.New("container \"sidecar\" is waiting to start")
		}
		return "hello from " + opts.Container, nil
	}

	res := ops.Logs(context.Background(), "test", "shop", "web-0", "", nil)
	require.True(t, res.Success)
	assert.Equal(t,
		"\n--- Container: app ---\nhello from app\n"+
			"\n--- Container: sidecar ---\nError fetching logs: container \"sidecar\" is waiting to start\n",
		res.Logs)
}

func TestLogs_NoContainers(t *testing.T) {
	ops, _ := newOps(testPod())

	res := ops.Logs(context.Background(), "test", "shop", "web-0", "", nil)
	assert.True(t, res.Success)
	assert.Equal(t, "No containers found in pod", res.Logs)
}

func TestLogs_PodNotFound(t *testing.T) {
	ops, _ := newOps()

	res := ops.Logs(context.Background(), "test", "shop", "web-0", "", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Pod shop/web-0 not found", res.Message)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestLogs_Forbidden(t *testing.T) {
	ops, core := newOps(testPod("app"))
	core.PrependReactor("get", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(podsResource, "web-0", errors.New("rbac"))
	})

	res := ops.Logs(context.Background(), "test", "shop", "web-0", "", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Access denied for pod logs shop/web-0", res.Message)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestLogs_MissingParams(t *testing.T) {
	ops, _ := newOps()

	res := ops.Logs(context.Background(), "test", "", "web-0", "", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Missing required parameters: namespace", res.Message)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDetails(t *testing.T) {
	ops, _ := newOps(testPod("app"))

	res := ops.Details(context.Background(), "test", "shop", "web-0")
	require.True(t, res.Success)
	require.NotNil(t, res.Details)
	assert.Equal(t, "v1", res.Details.APIVersion)
	assert.Equal(t, "Pod", res.Details.Kind)
	assert.Equal(t, "web-0", res.Details.Name)
	assert.Len(t, res.Details.Spec.Containers, 1)
}

func TestDetails_Errors(t *testing.T) {
	ops, core := newOps(testPod("app"))

	res := ops.Details(context.Background(), "test", "shop", "missing")
	assert.False(t, res.Success)
	assert.Nil(t, res.Details)
	assert.Equal(t, "Pod shop/missing not found", res.Message)

	core.PrependReactor("get", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(podsResource, "web-0", errors.New("rbac"))
	})
	res = ops.Details(context.Background(), "test", "shop", "web-0")
	assert.Equal(t, "Access denied for pod shop/web-0", res.Message)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res = ops.Details(context.Background(), "", "shop", "web-0")
	assert.Equal(t, "Missing required parameters: cluster", res.Message)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
