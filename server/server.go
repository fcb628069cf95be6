// Package server exposes the telemetry engine over HTTP. Handlers are thin:
// they parse path values, call the engine and serialize its records.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Captain-Sangam/KubePeek/config"
	"github.com/Captain-Sangam/KubePeek/health"
	"github.com/Captain-Sangam/KubePeek/model"
	"golang.org/x/time/rate"
)

const (
	defaultName    = "kubepeek"
	defaultVersion = "dev"
)

// ClusterLister enumerates the kubeconfig contexts.
type ClusterLister interface {
	ListClusters() []model.Cluster
	ResolveContextAlias(name string) string
}

// ClusterHealth reports API server reachability per context.
type ClusterHealth interface {
	Status(cluster string) (health.Status, bool)
}

// Aggregator builds the per-cluster views.
type Aggregator interface {
	ListNodes(ctx context.Context, cluster string) ([]model.Node, error)
	ListNodeGroups(ctx context.Context, cluster string) ([]model.NodeGroup, error)
	ListPods(ctx context.Context, cluster string) ([]model.Pod, error)
}

// PodOperator performs actions on a single pod.
type PodOperator interface {
	Delete(ctx context.Context, cluster, namespace, name string) model.DeleteResult
	Logs(ctx context.Context, cluster, namespace, name, container string, tailLines *int64) model.LogsResult
	Details(ctx context.Context, cluster, namespace, name string) model.DetailsResult
}

// Server serves the dashboard API.
type Server struct {
	name    string
	version string
	config  *config.ServerConfig

	clusters   ClusterLister
	aggregator Aggregator
	pods       PodOperator
	health     ClusterHealth

	limiter *rate.Limiter

	mu    sync.RWMutex
	ready bool
}

// Option configures a Server.
type Option func(*Server)

func WithName(name string) Option {
	return func(s *Server) { s.name = name }
}

func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

func WithConfig(cfg *config.ServerConfig) Option {
	return func(s *Server) { s.config = cfg }
}

func WithClusters(clusters ClusterLister) Option {
	return func(s *Server) { s.clusters = clusters }
}

func WithAggregator(aggregator Aggregator) Option {
	return func(s *Server) { s.aggregator = aggregator }
}

func WithPodOperations(pods PodOperator) Option {
	return func(s *Server) { s.pods = pods }
}

func WithHealth(health ClusterHealth) Option {
	return func(s *Server) { s.health = health }
}

// New creates a Server. Unset config falls back to config.DefaultConfig().
func New(opts ...Option) *Server {
	s := &Server{
		name:    defaultName,
		version: defaultVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = &config.DefaultConfig().Server
	}
	s.limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), s.config.RateLimitBurst)
	return s
}

// Handler returns the complete HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return requestIDMiddleware(loggingMiddleware(corsMiddleware(s.routes())))
}

func (s *Server) setReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout.Duration,
		ReadHeaderTimeout: s.config.ReadTimeout.Duration,
		WriteTimeout:      s.config.WriteTimeout.Duration,
		IdleTimeout:       s.config.IdleTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "name", s.name, "version", s.version, "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.setReady(true)

	select {
	case err := <-errCh:
		s.setReady(false)
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.setReady(false)
	slog.Info("shutting down server", "timeout", s.config.ShutdownTimeout.Duration)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout.Duration)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// drain the listener goroutine
	if err := <-errCh; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
