package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchfleet/pkg/model"
)

const sampleYAML = `
catalogue_path: /assets//catalogue.json
export_path: /exports
nodes:
  - address: 10.0.0.11
    user: artist
    platform: posix
    cores: 8
  - address: 10.0.0.12
    user: artist
    platform: windows
    cores: 4
  - name: local-box
    address: render-box
    user: root
    platform: posix
    cores: 2
    transport: docker
probe:
  timeout: 3s
dispatch:
  strategy: balanced
`

func noEnv(string) (string, bool) { return "", false }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "sweep", cfg.Dispatch.Strategy)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "ssh", cfg.SSH.Binary)
	assert.Equal(t, []string{"-r"}, cfg.Remote.ExtraArgs)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := NewLoader().WithEnv(noEnv).WithConfigPath(writeConfig(t, sampleYAML)).Load()
	require.NoError(t, err)

	require.Len(t, cfg.Nodes, 3)
	assert.Equal(t, "10.0.0.11", cfg.Nodes[0].Address)
	assert.Equal(t, model.PlatformWindows, cfg.Nodes[1].Platform)
	assert.Equal(t, model.TransportDocker, cfg.Nodes[2].Transport)
	assert.Equal(t, "local-box", cfg.Nodes[2].DisplayName())
	assert.Equal(t, 3*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "balanced", cfg.Dispatch.Strategy)
	assert.Equal(t, filepath.FromSlash("/assets/catalogue.json"), cfg.CataloguePath)

	// 未覆盖的部分保持默认值
	assert.Equal(t, "batch_node.py", cfg.Remote.Program)
	require.NoError(t, cfg.Validate())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := NewLoader().WithEnv(noEnv).WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := NewLoader().WithEnv(noEnv).WithConfigPath(writeConfig(t, "nodes: [")).Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"BF_EXPORT_PATH":       "/tmp/out",
		"BF_PROBE_TIMEOUT":     "1m",
		"BF_STORE_ENABLED":     "true",
		"BF_STORE_ENDPOINTS":   "etcd-1:2379, etcd-2:2379",
		"BF_DISPATCH_STRATEGY": "sweep",
		"BF_LOG_LEVEL":         "debug",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, err := NewLoader().WithEnv(lookup).WithConfigPath(writeConfig(t, sampleYAML)).Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/tmp/out"), cfg.ExportPath)
	assert.Equal(t, time.Minute, cfg.Probe.Timeout)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, []string{"etcd-1:2379", "etcd-2:2379"}, cfg.Store.Endpoints)
	assert.Equal(t, "sweep", cfg.Dispatch.Strategy)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverrideInvalid(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "BF_PROBE_TIMEOUT" {
			return "soon", true
		}
		return "", false
	}
	_, err := NewLoader().WithEnv(lookup).WithConfigPath(writeConfig(t, sampleYAML)).Load()
	assert.Error(t, err)
}

func TestParseConfigRoundTrip(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleYAML))
	require.NoError(t, err)
	data, err := cfg.Serialize()
	require.NoError(t, err)
	again, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Nodes, again.Nodes)
	assert.Equal(t, cfg.Probe, again.Probe)
}

func TestUsesTransport(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleYAML))
	require.NoError(t, err)
	assert.True(t, cfg.UsesTransport(model.TransportSSH))
	assert.True(t, cfg.UsesTransport(model.TransportDocker))

	cfg.Nodes = cfg.Nodes[:2]
	assert.False(t, cfg.UsesTransport(model.TransportDocker))
}
