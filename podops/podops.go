// Package podops implements the per-pod actions offered by the dashboard:
// deletion, log retrieval and detail inspection. Every operation reports its
// outcome in a result envelope instead of returning an error.
package podops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Captain-Sangam/KubePeek/k8s"
	"github.com/Captain-Sangam/KubePeek/model"
	coreV1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const noContainersMessage = "No containers found in pod"

// ClientProvider resolves a cluster name to API clients.
type ClientProvider interface {
	ClientsFor(ctx context.Context, cluster string) (*k8s.Clients, error)
}

// logReader fetches the log text of one container.
type logReader func(ctx context.Context, core kubernetes.Interface, namespace, name string, opts *coreV1.PodLogOptions) (string, error)

type Operations struct {
	clients  ClientProvider
	readLogs logReader
}

func New(clients ClientProvider) *Operations {
	return &Operations{
		clients:  clients,
		readLogs: readContainerLogs,
	}
}

func readContainerLogs(ctx context.Context, core kubernetes.Interface, namespace, name string, opts *coreV1.PodLogOptions) (string, error) {
	body, err := core.CoreV1().Pods(namespace).GetLogs(name, opts).DoRaw(ctx)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Delete removes the pod. Failures are reported in the result.
func (o *Operations) Delete(ctx context.Context, cluster, namespace, name string) model.DeleteResult {
	if msg, ok := missingParams(cluster, namespace, name); !ok {
		return model.DeleteResult{Message: msg, StatusCode: http.StatusBadRequest}
	}

	clients, err := o.clients.ClientsFor(ctx, cluster)
	if err != nil {
		return model.DeleteResult{Message: err.Error(), StatusCode: statusFor(err)}
	}

	err = clients.Core.CoreV1().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil {
		slog.Error("failed to delete pod", "cluster", clients.Context, "namespace", namespace, "pod", name, "error", err)
		msg, code := translate(err, namespace, name, "Access denied for pod %s/%s")
		return model.DeleteResult{Message: msg, StatusCode: code}
	}

	slog.Info("pod deleted", "cluster", clients.Context, "namespace", namespace, "pod", name)
	return model.DeleteResult{
		Success:    true,
		Message:    fmt.Sprintf("Pod %s/%s deleted successfully", namespace, name),
		StatusCode: http.StatusOK,
	}
}

// Logs returns the logs of container, or of every container in the pod when
// container is empty. tailLines limits each container's output when set.
func (o *Operations) Logs(ctx context.Context, cluster, namespace, name, container string, tailLines *int64) model.LogsResult {
	if msg, ok := missingParams(cluster, namespace, name); !ok {
		return model.LogsResult{Message: msg, StatusCode: http.StatusBadRequest}
	}

	clients, err := o.clients.ClientsFor(ctx, cluster)
	if err != nil {
		return model.LogsResult{Message: err.Error(), StatusCode: statusFor(err)}
	}

	fail := func(err error) model.LogsResult {
		slog.Error("failed to fetch pod logs", "cluster", clients.Context, "namespace", namespace, "pod", name, "error", err)
		msg, code := translate(err, namespace, name, "Access denied for pod logs %s/%s")
		return model.LogsResult{Message: msg, StatusCode: code}
	}

	if container != "" {
		logs, err := o.readLogs(ctx, clients.Core, namespace, name, &coreV1.PodLogOptions{
			Container: container,
			TailLines: tailLines,
		})
		if err != nil {
			return fail(err)
		}
		return model.LogsResult{Success: true, Logs: logs, StatusCode: http.StatusOK}
	}

	pod, err := clients.Core.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fail(err)
	}
	if len(pod.Spec.Containers) == 0 {
		return model.LogsResult{Success: true, Logs: noContainersMessage, StatusCode: http.StatusOK}
	}

	var sb strings.Builder
	for _, c := range pod.Spec.Containers {
		fmt.Fprintf(&sb, "\n--- Container: %s ---\n", c.Name)
		logs, err := o.readLogs(ctx, clients.Core, namespace, name, &coreV1.PodLogOptions{
			Container: c.Name,
			TailLines: tailLines,
		})
		if err != nil {
			slog.Warn("failed to fetch container logs", "namespace", namespace, "pod", name, "container", c.Name, "error", err)
			fmt.Fprintf(&sb, "Error fetching logs: %s\n", err.Error())
			continue
		}
		sb.WriteString(logs)
		sb.WriteString("\n")
	}

	return model.LogsResult{Success: true, Logs: sb.String(), StatusCode: http.StatusOK}
}

// Details returns the full pod object.
func (o *Operations) Details(ctx context.Context, cluster, namespace, name string) model.DetailsResult {
	if msg, ok := missingParams(cluster, namespace, name); !ok {
		return model.DetailsResult{Message: msg, StatusCode: http.StatusBadRequest}
	}

	clients, err := o.clients.ClientsFor(ctx, cluster)
	if err != nil {
		return model.DetailsResult{Message: err.Error(), StatusCode: statusFor(err)}
	}

	pod, err := clients.Core.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		slog.Error("failed to fetch pod details", "cluster", clients.Context, "namespace", namespace, "pod", name, "error", err)
		msg, code := translate(err, namespace, name, "Access denied for pod %s/%s")
		return model.DetailsResult{Message: msg, StatusCode: code}
	}

	// typed clients drop TypeMeta on decode
	pod.APIVersion = "v1"
	pod.Kind = "Pod"

	return model.DetailsResult{Success: true, Details: pod, StatusCode: http.StatusOK}
}

func missingParams(cluster, namespace, name string) (string, bool) {
	var missing []string
	if cluster == "" {
		missing = append(missing, "cluster")
	}
	if namespace == "" {
		missing = append(missing, "namespace")
	}
	if name == "" {
		missing = append(missing, "podName")
	}
	if len(missing) == 0 {
		return "", true
	}
	return "Missing required parameters: " + strings.Join(missing, " "), false
}

// translate maps an API error to a user-facing message and HTTP status.
func translate(err error, namespace, name, forbiddenFormat string) (string, int) {
	switch {
	case apierrors.IsNotFound(err):
		return fmt.Sprintf("Pod %s/%s not found", namespace, name), http.StatusNotFound
	case apierrors.IsForbidden(err):
		return fmt.Sprintf(forbiddenFormat, namespace, name), http.StatusForbidden
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		s := status.Status()
		msg := s.Message
		if msg == "" {
			msg = "Unknown error"
		}
		code := int(s.Code)
		if code == 0 {
			code = http.StatusInternalServerError
		}
		return fmt.Sprintf("Kubernetes API error (%d): %s", s.Code, msg), code
	}

	return err.Error(), statusFor(err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, k8s.ErrNoUsableContext):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
