package main

import (
	"github.com/spf13/cobra"
)

func newConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "打印生效配置 (默认值、配置文件与环境变量合并后的结果)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup()
			if err != nil {
				return err
			}
			data, err := cfg.Serialize()
			if err != nil {
				return err
			}
			_, err = c.out.Write(data)
			return err
		},
	}
}
