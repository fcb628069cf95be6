package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Captain-Sangam/KubePeek/metrics"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvPort          = "PORT"
	EnvLogLevel      = "LOG_LEVEL"
	EnvMetricsSource = "KUBEPEEK_METRICS_SOURCE"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig `json:"server"`
	Client   ClientConfig `json:"client"`
	Source   SourceConfig `json:"source"`
	LogLevel string       `json:"logLevel"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Address string `json:"address"`
	Port    int    `json:"port"`

	// requests per second and burst size for the token bucket
	RateLimit      float64 `json:"rateLimit"`
	RateLimitBurst int     `json:"rateLimitBurst"`

	RequestTimeout  metav1.Duration `json:"requestTimeout"`
	ReadTimeout     metav1.Duration `json:"readTimeout"`
	WriteTimeout    metav1.Duration `json:"writeTimeout"`
	IdleTimeout     metav1.Duration `json:"idleTimeout"`
	ShutdownTimeout metav1.Duration `json:"shutdownTimeout"`
}

// ClientConfig tunes the Kubernetes REST clients
type ClientConfig struct {
	Timeout metav1.Duration `json:"timeout"`
	QPS     float32         `json:"qps"`
	Burst   int             `json:"burst"`
}

// SourceConfig defines which metrics source to use
type SourceConfig struct {
	Type string `json:"type"` // "metrics-server" | "raw" | "none"
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			RateLimit:       100,
			RateLimitBurst:  200,
			RequestTimeout:  metav1.Duration{Duration: 30 * time.Second},
			ReadTimeout:     metav1.Duration{Duration: 10 * time.Second},
			WriteTimeout:    metav1.Duration{Duration: 60 * time.Second},
			IdleTimeout:     metav1.Duration{Duration: 120 * time.Second},
			ShutdownTimeout: metav1.Duration{Duration: 30 * time.Second},
		},
		Client: ClientConfig{
			Timeout: metav1.Duration{Duration: 20 * time.Second},
			QPS:     50,
			Burst:   100,
		},
		Source: SourceConfig{
			Type: metrics.SourceTypeMetricsServer,
		},
		LogLevel: slog.LevelInfo.String(),
	}
}

// ApplyEnv overrides fields from environment variables. Malformed values
// are ignored.
func (c *Config) ApplyEnv() {
	if portStr := os.Getenv(EnvPort); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Server.Port = port
		}
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = level
	}
	if source := os.Getenv(EnvMetricsSource); source != "" {
		c.Source.Type = strings.ToLower(source)
	}
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// ParseLogLevel converts LogLevel to a slog.Level.
func (c *Config) ParseLogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log-level: %s", c.LogLevel)
	}
	return level, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Source.Type {
	case metrics.SourceTypeMetricsServer, metrics.SourceTypeRaw, metrics.SourceTypeNone:
	default:
		return fmt.Errorf("invalid metrics-source: %s (must be 'metrics-server', 'raw', or 'none')", c.Source.Type)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Server.Port)
	}

	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("rate-limit must be > 0, got %v", c.Server.RateLimit)
	}

	if c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("rate-limit-burst must be >= 1, got %d", c.Server.RateLimitBurst)
	}

	if c.Server.RequestTimeout.Duration < time.Second {
		return fmt.Errorf("request-timeout must be >= 1s, got %v", c.Server.RequestTimeout.Duration)
	}

	if c.Client.Timeout.Duration < 0 {
		return fmt.Errorf("client-timeout must not be negative, got %v", c.Client.Timeout.Duration)
	}

	if c.Client.QPS < 0 || c.Client.Burst < 0 {
		return fmt.Errorf("client-qps and client-burst must not be negative")
	}

	if _, err := c.ParseLogLevel(); err != nil {
		return err
	}

	return nil
}
