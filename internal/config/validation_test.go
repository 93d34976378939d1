package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchfleet/pkg/model"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Nodes = []*model.Node{
		{Address: "10.0.0.1", User: "a", Platform: model.PlatformPosix, Cores: 2},
		{Address: "10.0.0.2", User: "a", Platform: model.PlatformWindows, Cores: 1, Transport: model.TransportSSH},
	}
	return cfg
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateNoNodesIsAllowed(t *testing.T) {
	// 节点为空不是配置错误，运行时报告 no available nodes
	cfg := validConfig()
	cfg.Nodes = nil
	assert.NoError(t, cfg.Validate())
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing address", func(c *Config) { c.Nodes[0].Address = "" }},
		{"duplicate address", func(c *Config) { c.Nodes[1].Address = c.Nodes[0].Address }},
		{"zero cores", func(c *Config) { c.Nodes[0].Cores = 0 }},
		{"negative cores", func(c *Config) { c.Nodes[1].Cores = -4 }},
		{"unknown platform", func(c *Config) { c.Nodes[0].Platform = "amiga" }},
		{"unknown transport", func(c *Config) { c.Nodes[0].Transport = "telnet" }},
		{"nil node", func(c *Config) { c.Nodes = append(c.Nodes, nil) }},
		{"unknown strategy", func(c *Config) { c.Dispatch.Strategy = "random" }},
		{"zero probe timeout", func(c *Config) { c.Probe.Timeout = 0 }},
		{"no program", func(c *Config) { c.Remote.Program = "" }},
		{"file logging without path", func(c *Config) { c.Logging.Output = "file" }},
		{"both logging without path", func(c *Config) { c.Logging.Output = "both" }},
		{"unknown logging output", func(c *Config) { c.Logging.Output = "syslog" }},
		{"store without endpoints", func(c *Config) {
			c.Store.Enabled = true
			c.Store.Endpoints = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidateFileLogging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = "/var/log/batchfleet.log"
	assert.NoError(t, cfg.Validate())
}
