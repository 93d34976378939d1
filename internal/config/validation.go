package config

import (
	"fmt"

	"go.uber.org/multierr"

	"batchfleet/pkg/model"
)

const (
	StrategySweep    = "sweep"
	StrategyBalanced = "balanced"
)

// Validate 检查节点声明与策略，所有问题一次性返回
func (c *Config) Validate() error {
	var err error

	seen := make(map[string]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		if n == nil {
			err = multierr.Append(err, fmt.Errorf("nodes[%d]: empty entry", i))
			continue
		}
		if n.Address == "" {
			err = multierr.Append(err, fmt.Errorf("nodes[%d]: address is required", i))
		} else if seen[n.Address] {
			err = multierr.Append(err, fmt.Errorf("nodes[%d]: duplicate address %s", i, n.Address))
		}
		seen[n.Address] = true
		if n.Cores <= 0 {
			err = multierr.Append(err, fmt.Errorf("nodes[%d]: cores must be positive, got %d", i, n.Cores))
		}
		if !n.Platform.Valid() {
			err = multierr.Append(err, fmt.Errorf("nodes[%d]: unknown platform %q", i, n.Platform))
		}
		if !n.Transport.Valid() {
			err = multierr.Append(err, fmt.Errorf("nodes[%d]: unknown transport %q", i, n.Transport))
		}
	}

	switch c.Dispatch.Strategy {
	case StrategySweep, StrategyBalanced:
	default:
		err = multierr.Append(err, fmt.Errorf("dispatch.strategy: unknown strategy %q", c.Dispatch.Strategy))
	}

	if c.Probe.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("probe.timeout must be positive"))
	}
	if c.Remote.Program == "" || c.Remote.ScratchDir == "" {
		err = multierr.Append(err, fmt.Errorf("remote.program and remote.scratch_dir are required"))
	}
	switch c.Logging.Output {
	case "", "stdout", "stderr":
	case "file", "both":
		if c.Logging.FilePath == "" {
			err = multierr.Append(err, fmt.Errorf("logging.file_path required when logging.output is %q", c.Logging.Output))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("logging.output: unknown output %q", c.Logging.Output))
	}
	if c.Store.Enabled && len(c.Store.Endpoints) == 0 {
		err = multierr.Append(err, fmt.Errorf("store.endpoints required when store is enabled"))
	}

	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// UsesTransport 是否有节点声明了该通道
func (c *Config) UsesTransport(t model.Transport) bool {
	for _, n := range c.Nodes {
		if n != nil && n.TransportOrDefault() == t {
			return true
		}
	}
	return false
}
