package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"batchfleet/internal/master"
	"batchfleet/pkg/model"
	"batchfleet/pkg/store"
)

var errStoreDisabled = errors.New("run history is disabled (set store.enabled in config)")

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		taskID string
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "查看运行历史",
		Long: `不带参数时列出所有运行 (最近的在前)；
给出 run-id 时打印该次运行的汇总，配合 --log 打印某个远程任务的输出。`,
		Example: `  batchfleet history
  batchfleet history 6f1c0f0e-... --log 0b6d...
  batchfleet history --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.setup()
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			if s == nil {
				c.exitCode = master.ExitConfig
				return errStoreDisabled
			}
			defer s.Close()

			if watch {
				ctx, cancel := signalContext()
				defer cancel()
				return watchRuns(ctx, s, c.out)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			switch {
			case len(args) == 0:
				return listRuns(ctx, s, c.out)
			case taskID != "":
				return printTaskLog(ctx, s, c.out, args[0], taskID)
			default:
				return printRun(ctx, s, c.out, args[0])
			}
		},
	}

	cmd.Flags().StringVar(&taskID, "log", "", "打印指定任务的输出 (需要 run-id)")
	cmd.Flags().BoolVar(&watch, "watch", false, "持续打印新完成的运行")
	return cmd
}

func listRuns(ctx context.Context, s store.Store, out io.Writer) error {
	runs, err := s.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintln(out, master.FormatSummary(r))
	}
	return nil
}

func printRun(ctx context.Context, s store.Store, out io.Writer, runID string) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(run)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func printTaskLog(ctx context.Context, s store.Store, out io.Writer, runID, taskID string) error {
	logs, err := s.GetTaskLog(ctx, runID, taskID)
	if err != nil {
		return fmt.Errorf("get logs: %w", err)
	}
	fmt.Fprintf(out, "Logs for task [%s]:\n", taskID)
	fmt.Fprintln(out, "================================================")
	fmt.Fprint(out, logs)
	fmt.Fprintln(out, "================================================")
	return nil
}

// watchRuns 直到 ctx 结束
func watchRuns(ctx context.Context, s store.Store, out io.Writer) error {
	for ev := range s.WatchRuns(ctx) {
		if ev.Type != store.RunSaved || ev.Run == nil {
			continue
		}
		fmt.Fprintln(out, master.FormatSummary(ev.Run))
		printFailures(out, ev.Run)
	}
	return nil
}

func printFailures(out io.Writer, run *model.RunSummary) {
	for _, f := range run.Failures {
		fmt.Fprintf(out, "  %s\n", f)
	}
}
