package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Captain-Sangam/KubePeek/aggregate"
	"github.com/Captain-Sangam/KubePeek/config"
	"github.com/Captain-Sangam/KubePeek/health"
	"github.com/Captain-Sangam/KubePeek/k8s"
	"github.com/Captain-Sangam/KubePeek/logging"
	"github.com/Captain-Sangam/KubePeek/podops"
	"github.com/Captain-Sangam/KubePeek/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

const name = "kubepeek"

var (
	// overridden during build with ldflags, e.g.
	// -X "github.com/Captain-Sangam/KubePeek/cmd.version=1.0.0"
	version = "dev"
	commit  = "unknown"

	examples = `
# Serve the dashboard API for every context in the default kubeconfig
%[1]s

# Serve on another port using an explicit kubeconfig
%[1]s --port 9090 --kubeconfig ~/.kube/prod-config

# Make a specific context the active one
%[1]s --context <context>

# Read usage through the raw metrics API instead of the typed client
%[1]s --metrics-source raw

# Write the default configuration file, then show the effective settings
%[1]s config init
%[1]s config view
`
)

type kubepeekCmdOptions struct {
	configFile string
	cfg        *config.Config
	kubeFlags  *genericclioptions.ConfigFlags

	// flags bound to cfg, re-applied over the loaded configuration
	cfgFlags *pflag.FlagSet
}

// NewKubePeekCmd returns the root command.
func NewKubePeekCmd() *cobra.Command {
	o := &kubepeekCmdOptions{
		cfg:       config.DefaultConfig(),
		kubeFlags: genericclioptions.NewConfigFlags(false),
	}
	// --request-timeout belongs to the HTTP server; client timeouts use --client-timeout
	o.kubeFlags.Timeout = nil

	program := filepath.Base(os.Args[0])
	pluginMode := strings.HasPrefix(program, "kubectl-")
	usage := fmt.Sprintf("%s [flags]", program)
	shortDesc := fmt.Sprintf("Runs the %s dashboard API (standalone)", program)
	if pluginMode {
		shortDesc = fmt.Sprintf("Runs the %s dashboard API as kubectl plugin", program)
	}

	cmd := &cobra.Command{
		Use:          usage,
		Short:        shortDesc,
		Example:      fmt.Sprintf(examples, program),
		Version:      version,
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			if err := o.complete(c.Flags()); err != nil {
				return err
			}
			return o.runKubePeek(c.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&o.configFile, "config", "", "Path to config file (default $HOME/.kubepeek/config.yaml)")
	o.addFlags(cmd.Flags())
	o.kubeFlags.AddFlags(cmd.Flags())

	cmd.AddCommand(newConfigCmd(o))
	return cmd
}

func (o *kubepeekCmdOptions) addFlags(flags *pflag.FlagSet) {
	cfg := o.cfg
	fs := pflag.NewFlagSet("kubepeek", pflag.ContinueOnError)
	fs.StringVar(&cfg.Server.Address, "address", cfg.Server.Address, "Address to listen on")
	fs.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "Port to listen on")
	fs.Float64Var(&cfg.Server.RateLimit, "rate-limit", cfg.Server.RateLimit, "API requests allowed per second")
	fs.IntVar(&cfg.Server.RateLimitBurst, "rate-limit-burst", cfg.Server.RateLimitBurst, "API request burst size")
	fs.DurationVar(&cfg.Server.RequestTimeout.Duration, "request-timeout", cfg.Server.RequestTimeout.Duration, "Deadline for each API request")
	fs.DurationVar(&cfg.Server.ReadTimeout.Duration, "read-timeout", cfg.Server.ReadTimeout.Duration, "HTTP read timeout")
	fs.DurationVar(&cfg.Server.WriteTimeout.Duration, "write-timeout", cfg.Server.WriteTimeout.Duration, "HTTP write timeout")
	fs.DurationVar(&cfg.Server.IdleTimeout.Duration, "idle-timeout", cfg.Server.IdleTimeout.Duration, "HTTP keep-alive idle timeout")
	fs.DurationVar(&cfg.Server.ShutdownTimeout.Duration, "shutdown-timeout", cfg.Server.ShutdownTimeout.Duration, "Grace period for in-flight requests on shutdown")
	fs.DurationVar(&cfg.Client.Timeout.Duration, "client-timeout", cfg.Client.Timeout.Duration, "Timeout for each Kubernetes API call")
	fs.Float32Var(&cfg.Client.QPS, "client-qps", cfg.Client.QPS, "Kubernetes client queries per second")
	fs.IntVar(&cfg.Client.Burst, "client-burst", cfg.Client.Burst, "Kubernetes client burst")
	fs.StringVar(&cfg.Source.Type, "metrics-source", cfg.Source.Type, "Usage source: metrics-server, raw, or none")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	flags.AddFlagSet(fs)
	o.cfgFlags = fs
}

// complete resolves the configuration. Defaults are overridden by the
// config file, then the environment, then flags set on the command line.
func (o *kubepeekCmdOptions) complete(flags *pflag.FlagSet) error {
	changed := map[string]string{}
	flags.Visit(func(f *pflag.Flag) {
		if o.cfgFlags.Lookup(f.Name) != nil {
			changed[f.Name] = f.Value.String()
		}
	})

	loaded, err := config.LoadConfig(o.configFile)
	if err != nil {
		return err
	}
	// flags are bound to the fields of o.cfg, so copy in place
	*o.cfg = *loaded

	for flagName, value := range changed {
		if err := flags.Set(flagName, value); err != nil {
			return fmt.Errorf("invalid value for --%s: %w", flagName, err)
		}
	}

	return o.cfg.Validate()
}

func (o *kubepeekCmdOptions) runKubePeek(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.SetDefaultStructuredLogger(name, version, o.cfg.LogLevel)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"metrics_source", o.cfg.Source.Type,
	)

	registry := k8s.NewRegistryFromFlags(o.kubeFlags)
	slog.Info("kubeconfig loaded",
		"contexts", len(registry.ListClusters()),
		"current", registry.CurrentContextName(),
	)

	monitor := health.NewMonitor()

	factory := k8s.NewFactory(registry, k8s.ClientOptions{
		Timeout:       o.cfg.Client.Timeout.Duration,
		QPS:           o.cfg.Client.QPS,
		Burst:         o.cfg.Client.Burst,
		MetricsSource: o.cfg.Source.Type,
		MetricsHealth: monitor,
	})

	s := server.New(
		server.WithName(name),
		server.WithVersion(version),
		server.WithConfig(&o.cfg.Server),
		server.WithClusters(registry),
		server.WithAggregator(aggregate.New(factory, aggregate.WithHealthReporter(monitor))),
		server.WithPodOperations(podops.New(factory)),
		server.WithHealth(monitor),
	)

	if err := s.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}
	return nil
}

func newConfigCmd(o *kubepeekCmdOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfigFile(o.configFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Config file: %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "view",
		Short: "Print the effective configuration (file and environment applied)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(o.configFile)
			if err != nil {
				return err
			}
			out, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = c.OutOrStdout().Write(out)
			return err
		},
	})

	return cmd
}
