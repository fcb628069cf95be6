package k8s

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Captain-Sangam/KubePeek/model"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// LoadedContext is the placeholder name a caller may use to mean
// "whatever context is current".
const LoadedContext = "loaded-context"

const unknownServer = "Unknown"

// Registry enumerates kubeconfig contexts. The kubeconfig is re-read on every
// call so edits made while the server runs are picked up.
type Registry struct {
	loader          clientcmd.ClientConfig
	contextOverride string
	overrides       clientcmd.ConfigOverrides
}

// NewRegistry returns a Registry reading from loader. A non-empty
// contextOverride takes precedence over the kubeconfig's current-context.
func NewRegistry(loader clientcmd.ClientConfig, contextOverride string) *Registry {
	return &Registry{loader: loader, contextOverride: contextOverride}
}

// NewRegistryFromFlags builds a Registry from the kubeconfig flags. Connection
// and credential flags (--server, --token, --as, ...) apply to every context.
func NewRegistryFromFlags(flags *genericclioptions.ConfigFlags) *Registry {
	var override string
	if flags.Context != nil {
		override = *flags.Context
	}
	r := NewRegistry(flags.ToRawKubeConfigLoader(), override)
	r.overrides = overridesFromFlags(flags)
	return r
}

func overridesFromFlags(flags *genericclioptions.ConfigFlags) clientcmd.ConfigOverrides {
	var o clientcmd.ConfigOverrides
	str := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	str(&o.ClusterInfo.Server, flags.APIServer)
	str(&o.ClusterInfo.TLSServerName, flags.TLSServerName)
	str(&o.ClusterInfo.CertificateAuthority, flags.CAFile)
	if flags.Insecure != nil {
		o.ClusterInfo.InsecureSkipTLSVerify = *flags.Insecure
	}
	if flags.DisableCompression != nil {
		o.ClusterInfo.DisableCompression = *flags.DisableCompression
	}

	str(&o.AuthInfo.ClientCertificate, flags.CertFile)
	str(&o.AuthInfo.ClientKey, flags.KeyFile)
	str(&o.AuthInfo.Token, flags.BearerToken)
	str(&o.AuthInfo.Impersonate, flags.Impersonate)
	str(&o.AuthInfo.ImpersonateUID, flags.ImpersonateUID)
	if flags.ImpersonateGroup != nil {
		o.AuthInfo.ImpersonateGroups = *flags.ImpersonateGroup
	}
	str(&o.AuthInfo.Username, flags.Username)
	str(&o.AuthInfo.Password, flags.Password)

	str(&o.Context.Cluster, flags.ClusterName)
	str(&o.Context.AuthInfo, flags.AuthInfoName)
	str(&o.Context.Namespace, flags.Namespace)
	return o
}

func (r *Registry) rawConfig() (clientcmdapi.Config, error) {
	raw, err := r.loader.RawConfig()
	if err != nil {
		return clientcmdapi.Config{}, fmt.Errorf("loading kubeconfig: %w", err)
	}
	return raw, nil
}

// ListClusters returns one entry per kubeconfig context, sorted by name.
// Configuration errors are logged and produce an empty list.
func (r *Registry) ListClusters() []model.Cluster {
	raw, err := r.rawConfig()
	if err != nil {
		slog.Error("failed to list clusters", "error", err)
		return []model.Cluster{}
	}

	current := currentContextName(raw, r.contextOverride)
	clusters := make([]model.Cluster, 0, len(raw.Contexts))
	for _, name := range sortedContextNames(raw) {
		kctx := raw.Contexts[name]
		if kctx == nil {
			kctx = &clientcmdapi.Context{}
		}
		server := unknownServer
		if cluster, ok := raw.Clusters[kctx.Cluster]; ok && cluster != nil {
			server = cluster.Server
		}

		clusters = append(clusters, model.Cluster{
			Name:     name,
			Context:  kctx.Cluster,
			Server:   server,
			IsActive: name == current,
		})
	}
	return clusters
}

// CurrentContextName returns the active context, falling back to the first
// context by name and finally to LoadedContext. It never fails.
func (r *Registry) CurrentContextName() string {
	raw, err := r.rawConfig()
	if err != nil {
		slog.Debug("kubeconfig unavailable, using placeholder context", "error", err)
		return LoadedContext
	}
	return currentContextName(raw, r.contextOverride)
}

// ResolveContextAlias maps LoadedContext to the current context name and
// returns any other name unchanged.
func (r *Registry) ResolveContextAlias(name string) string {
	if name == LoadedContext {
		return r.CurrentContextName()
	}
	return name
}

// RESTConfig builds a client configuration for the named context with the
// command-line overrides applied.
func (r *Registry) RESTConfig(contextName string) (*rest.Config, error) {
	raw, err := r.rawConfig()
	if err != nil {
		return nil, err
	}
	if _, ok := raw.Contexts[contextName]; !ok {
		return nil, fmt.Errorf("context %q not found in kubeconfig", contextName)
	}

	overrides := r.overrides
	overrides.CurrentContext = contextName

	config, err := clientcmd.NewNonInteractiveClientConfig(raw, contextName, &overrides, nil).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("building client config for context %q: %w", contextName, err)
	}
	return config, nil
}

func currentContextName(raw clientcmdapi.Config, override string) string {
	if override != "" {
		if _, ok := raw.Contexts[override]; ok {
			return override
		}
	}
	if raw.CurrentContext != "" {
		return raw.CurrentContext
	}
	if names := sortedContextNames(raw); len(names) > 0 {
		return names[0]
	}
	return LoadedContext
}

func sortedContextNames(raw clientcmdapi.Config) []string {
	names := make([]string, 0, len(raw.Contexts))
	for name := range raw.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
