package k8s

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Captain-Sangam/KubePeek/metrics"
	metricsk8s "github.com/Captain-Sangam/KubePeek/metrics/k8s"
	"github.com/Captain-Sangam/KubePeek/metrics/raw"
	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth/oidc"
	restclient "k8s.io/client-go/rest"
)

// ErrNoUsableContext is returned when neither the requested nor the current
// context can produce a client.
var ErrNoUsableContext = errors.New("no usable kubeconfig context")

// Clients is the set of API handles for one cluster, built per request.
type Clients struct {
	Context string
	Core    kubernetes.Interface
	Metrics metrics.Source
}

// ClientOptions tune every REST config the Factory builds.
type ClientOptions struct {
	Timeout       time.Duration
	QPS           float32
	Burst         int
	MetricsSource string

	// MetricsHealth, when set, receives the outcome of every metrics call.
	MetricsHealth metrics.HealthReporter
}

// unavailableSource stands in for a metrics client that could not be built.
type unavailableSource struct{ err error }

func (u unavailableSource) NodeMetrics(context.Context) ([]metrics.NodeMetrics, error) {
	return nil, u.err
}

func (u unavailableSource) PodMetrics(context.Context) ([]metrics.PodMetrics, error) {
	return nil, u.err
}

// Factory turns a context name into Clients.
type Factory struct {
	registry *Registry
	opts     ClientOptions

	newCore    func(*restclient.Config) (kubernetes.Interface, error)
	newMetrics func(*restclient.Config) (metrics.Source, error)
}

func NewFactory(registry *Registry, opts ClientOptions) *Factory {
	f := &Factory{
		registry: registry,
		opts:     opts,
		newCore: func(config *restclient.Config) (kubernetes.Interface, error) {
			return kubernetes.NewForConfig(config)
		},
	}
	f.newMetrics = f.metricsSourceFor
	return f
}

// ClientsFor returns clients for clusterName. An unknown or broken context
// falls back to the current context; only when that fails too is an error
// returned.
func (f *Factory) ClientsFor(ctx context.Context, clusterName string) (*Clients, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := f.registry.ResolveContextAlias(clusterName)
	config, err := f.registry.RESTConfig(name)
	if err != nil {
		current := f.registry.CurrentContextName()
		slog.Warn("context unavailable, falling back to current context",
			"requested", clusterName,
			"fallback", current,
			"error", err,
		)
		name = current
		config, err = f.registry.RESTConfig(current)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoUsableContext, err)
		}
	}

	f.tune(config)

	core, err := f.newCore(config)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client for %q: %w", name, err)
	}

	source, err := f.newMetrics(config)
	if err != nil {
		slog.Warn("metrics client unavailable, usage will be reported as zero",
			"context", name,
			"error", err,
		)
		source = unavailableSource{err: err}
	}

	var reporter metrics.HealthReporter
	if f.opts.MetricsSource != metrics.SourceTypeNone {
		reporter = f.opts.MetricsHealth
	}

	return &Clients{
		Context: name,
		Core:    core,
		Metrics: metrics.BestEffort(name, source, reporter),
	}, nil
}

func (f *Factory) tune(config *restclient.Config) {
	if f.opts.Timeout > 0 {
		config.Timeout = f.opts.Timeout
	}
	if f.opts.QPS > 0 {
		config.QPS = f.opts.QPS
	}
	if f.opts.Burst > 0 {
		config.Burst = f.opts.Burst
	}
}

func (f *Factory) metricsSourceFor(config *restclient.Config) (metrics.Source, error) {
	switch f.opts.MetricsSource {
	case "", metrics.SourceTypeMetricsServer:
		return metricsk8s.NewMetricsServerSourceForConfig(config)
	case metrics.SourceTypeRaw:
		return raw.New(config, f.opts.Timeout)
	case metrics.SourceTypeNone:
		return metrics.Empty{}, nil
	default:
		return nil, fmt.Errorf("unknown metrics source %q", f.opts.MetricsSource)
	}
}
