package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"batchfleet/internal/config"
	"batchfleet/internal/master"
	"batchfleet/internal/worker/executor"
	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
	"batchfleet/pkg/store"
)

// Version 当前版本号
const Version = "0.1.0"

// cli 一次命令行调用的全局状态
type cli struct {
	cfgFile string
	debug   bool
	quiet   bool

	out      io.Writer
	errOut   io.Writer
	exitCode int
}

// newRootCmd 构造根命令及所有子命令
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "batchfleet",
		Short: "把批处理条目分发到一组远程节点执行并收集结果",
		Long: `batchfleet 探测配置中声明的节点，从目录文件中选择条目，
按节点核数切分后并发分发执行，最后把每个节点的输出收集到本地导出目录。`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// 全局 flags
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "配置文件路径 (默认 batchfleet.yaml)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "启用调试日志")
	root.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "不打印远程任务输出")

	// 禁用默认的 completion 命令
	root.CompletionOptions.DisableDefaultCmd = true

	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.AddCommand(newRunCmd(c))
	root.AddCommand(newNodesCmd(c))
	root.AddCommand(newHistoryCmd(c))
	root.AddCommand(newConfigCmd(c))
	return root
}

// Execute 执行命令并返回进程退出码
func Execute(args []string, out, errOut io.Writer) int {
	c := &cli{out: out, errOut: errOut}
	root := newRootCmd(c)
	root.SetArgs(args)

	err := root.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		if c.exitCode == master.ExitOK {
			c.exitCode = master.ExitError
		}
	}
	return c.exitCode
}

// setup 加载配置并初始化日志。配置错误的退出码为 2
func (c *cli) setup() (*config.Config, error) {
	loader := config.NewLoader()
	if c.cfgFile != "" {
		loader = loader.WithConfigPath(c.cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		c.exitCode = master.ExitConfig
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.debug {
		cfg.Logging.Level = "debug"
	}
	logger.Replace(logger.New(&cfg.Logging))

	if err := cfg.Validate(); err != nil {
		c.exitCode = master.ExitConfig
		return nil, err
	}
	return cfg, nil
}

// buildExecutor ssh 总是注册；只有节点声明 docker 时才连接 Docker Engine
func buildExecutor(cfg *config.Config) (executor.Executor, error) {
	router := executor.NewRouter().
		Register(model.TransportSSH, executor.NewSSHExecutor(cfg.SSH.Binary, cfg.SSH.SCPBinary, cfg.SSH.Options))

	if cfg.UsesTransport(model.TransportDocker) {
		d, err := executor.NewDockerExecutor(cfg.Docker.Host, cfg.Docker.APIVersion)
		if err != nil {
			return nil, fmt.Errorf("connect docker: %w", err)
		}
		router.Register(model.TransportDocker, d)
	}
	return router, nil
}

// openStore store 未开启时返回 nil
func openStore(cfg *config.Config) (store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}
	s, err := store.NewEtcdStore(cfg.Store.Endpoints, cfg.Store.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect etcd: %w", err)
	}
	return s, nil
}

// signalContext Ctrl+C 时取消正在执行的远程调用
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
