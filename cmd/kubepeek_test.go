package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Captain-Sangam/KubePeek/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

func newTestOptions() (*kubepeekCmdOptions, *pflag.FlagSet) {
	o := &kubepeekCmdOptions{
		cfg:       config.DefaultConfig(),
		kubeFlags: genericclioptions.NewConfigFlags(false),
	}
	o.kubeFlags.Timeout = nil
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringVar(&o.configFile, "config", "", "")
	o.addFlags(flags)
	o.kubeFlags.AddFlags(flags)
	return o, flags
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestComplete_Precedence(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 3000
  rateLimit: 5
  requestTimeout: 45s
logLevel: warn
`)
	t.Setenv(config.EnvLogLevel, "error")

	o, flags := newTestOptions()
	require.NoError(t, flags.Parse([]string{"--config", path, "--rate-limit", "7"}))
	require.NoError(t, o.complete(flags))

	assert.Equal(t, 3000, o.cfg.Server.Port, "file overrides default")
	assert.Equal(t, 45*time.Second, o.cfg.Server.RequestTimeout.Duration)
	assert.Equal(t, "error", o.cfg.LogLevel, "env overrides file")
	assert.Equal(t, float64(7), o.cfg.Server.RateLimit, "flag overrides file")
	assert.Equal(t, 200, o.cfg.Server.RateLimitBurst, "default kept")
}

func TestComplete_FlagOverridesEnv(t *testing.T) {
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvPort, "4000")

	o, flags := newTestOptions()
	path := filepath.Join(t.TempDir(), "absent.yaml")
	require.NoError(t, flags.Parse([]string{"--config", path, "--log-level", "debug", "--client-timeout", "5s"}))
	require.NoError(t, o.complete(flags))

	assert.Equal(t, "debug", o.cfg.LogLevel)
	assert.Equal(t, 4000, o.cfg.Server.Port)
	assert.Equal(t, 5*time.Second, o.cfg.Client.Timeout.Duration)
}

func TestComplete_KubeFlagsUntouched(t *testing.T) {
	o, flags := newTestOptions()
	path := filepath.Join(t.TempDir(), "absent.yaml")
	require.NoError(t, flags.Parse([]string{
		"--config", path,
		"--as-group", "devs",
		"--server", "https://override.example.com",
		"--port", "9000",
	}))
	require.NoError(t, o.complete(flags))

	assert.Equal(t, []string{"devs"}, *o.kubeFlags.ImpersonateGroup)
	assert.Equal(t, "https://override.example.com", *o.kubeFlags.APIServer)
	assert.Equal(t, 9000, o.cfg.Server.Port)
}

func TestComplete_Invalid(t *testing.T) {
	o, flags := newTestOptions()
	path := filepath.Join(t.TempDir(), "absent.yaml")
	require.NoError(t, flags.Parse([]string{"--config", path, "--metrics-source", "prometheus"}))

	err := o.complete(flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid metrics-source: prometheus")

	o, flags = newTestOptions()
	require.NoError(t, flags.Parse([]string{"--config", writeConfig(t, "server: [")}))
	assert.Error(t, o.complete(flags))
}

func TestNewKubePeekCmd_Flags(t *testing.T) {
	cmd := NewKubePeekCmd()

	timeout := cmd.Flag("request-timeout")
	require.NotNil(t, timeout)
	assert.Equal(t, "duration", timeout.Value.Type())

	for _, name := range []string{"context", "kubeconfig", "port", "metrics-source", "config"} {
		assert.NotNil(t, cmd.Flag(name), name)
	}
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubepeek", "config.yaml")

	var out bytes.Buffer
	cmd := NewKubePeekCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--config", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)
	assert.FileExists(t, path)

	out.Reset()
	cmd = NewKubePeekCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "view", "--config", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "type: metrics-server")
	assert.Contains(t, out.String(), "requestTimeout: 30s")
}
