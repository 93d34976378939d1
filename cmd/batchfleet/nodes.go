package main

import (
	"github.com/spf13/cobra"

	"batchfleet/internal/master"
)

func newNodesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "探测配置中的节点并打印就绪名单",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup()
			if err != nil {
				return err
			}
			exec, err := buildExecutor(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			ready := master.NewOrchestrator(cfg, exec, nil, c.out).Probe(ctx)
			if len(ready) == 0 {
				c.exitCode = master.ExitNoNodes
			}
			return nil
		},
	}
}
