package main

import (
	"github.com/spf13/cobra"

	"batchfleet/internal/config"
	"batchfleet/internal/master"
	"batchfleet/pkg/catalogue"
)

// runFlags run 子命令的 flags
type runFlags struct {
	catalogue  string
	all        bool
	category   string
	filename   string
	tag        string
	exportPath string
	listOnly   bool
	updateRepo bool
	strategy   string
}

func newRunCmd(c *cli) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "选择条目并分发到就绪节点执行",
		Long: `探测节点，按选择条件从目录中选出条目，按节点核数分区后并发执行，
最后从每个参与的节点收集结果到导出目录并清理远程临时目录。

多个选择条件同时给出时结果取并集；--all 选择全部条目。`,
		Example: `  # 导出所有带 hero 标签的条目
  batchfleet run -o catalogue.json -t hero -e ./exports

  # 只列出 Props 分类下的条目，不执行
  batchfleet run -o catalogue.yaml -c Props -l

  # 先更新所有节点的版本库，再导出全部条目
  batchfleet run -o catalogue.json -a -u -e ./exports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.catalogue, "open", "o", "", "目录文件 (JSON 或 YAML)")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "选择全部条目")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "选择某个分类下的全部条目")
	cmd.Flags().StringVarP(&f.filename, "filename", "f", "", "选择 ID 包含该子串的条目")
	cmd.Flags().StringVarP(&f.tag, "tag", "t", "", "选择带该标签的条目")
	cmd.Flags().StringVarP(&f.exportPath, "exportpath", "e", "", "本地导出目录")
	cmd.Flags().BoolVarP(&f.listOnly, "listonly", "l", false, "只列出选中的条目，不分发")
	cmd.Flags().BoolVarP(&f.updateRepo, "updaterepo", "u", false, "分发前更新所有就绪节点的版本库")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "分区策略 (sweep, balanced)")
	return cmd
}

// apply 命令行参数覆盖配置
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("open") {
		cfg.CataloguePath = f.catalogue
	}
	if cmd.Flags().Changed("exportpath") {
		cfg.ExportPath = f.exportPath
	}
	if cmd.Flags().Changed("strategy") {
		cfg.Dispatch.Strategy = f.strategy
	}
}

func (f *runFlags) options(cfg *config.Config) master.RunOptions {
	return master.RunOptions{
		CataloguePath: cfg.CataloguePath,
		ExportPath:    cfg.ExportPath,
		Selection: catalogue.Selection{
			All:          f.all,
			Category:     f.category,
			NameContains: f.filename,
			Tag:          f.tag,
		},
		ListOnly:    f.listOnly,
		UpdateRepos: f.updateRepo,
	}
}

func (c *cli) run(cmd *cobra.Command, f *runFlags) error {
	cfg, err := c.setup()
	if err != nil {
		return err
	}
	f.apply(cmd, cfg)
	// --strategy 覆盖后重新校验
	if err := cfg.Validate(); err != nil {
		c.exitCode = master.ExitConfig
		return err
	}

	exec, err := buildExecutor(cfg)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	if s != nil {
		defer s.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	orch := master.NewOrchestrator(cfg, exec, s, c.out)
	orch.SetQuiet(c.quiet)
	summary, err := orch.Run(ctx, f.options(cfg))

	// 诊断信息已由 Orchestrator 打印，这里只设置退出码
	c.exitCode = master.ExitCode(summary, err)
	return nil
}
