package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"batchfleet/internal/worker/executor"
	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
	"batchfleet/pkg/store"
)

// Agent 通过远程执行通道执行单个任务并维护任务状态
type Agent struct {
	runID    string
	store    store.Store // 可为 nil
	executor executor.Executor

	onFinish func(*model.Task) // 可为 nil，任务结束后在执行它的 goroutine 中调用
}

func NewAgent(exec executor.Executor, s store.Store, runID string) *Agent {
	return &Agent{
		runID:    runID,
		store:    s,
		executor: exec,
	}
}

// OnFinish 注册任务结束回调，用于在 barrier 之前实时输出进度
func (a *Agent) OnFinish(fn func(*model.Task)) *Agent {
	a.onFinish = fn
	return a
}

// Execute 执行任务。失败只记录在 task.Status 中，不向上传播
func (a *Agent) Execute(ctx context.Context, task *model.Task) {
	// 1. 更新状态为 Running
	task.Status.State = model.TaskRunning
	task.Status.StartTime = time.Now()
	logger.Debug("task started",
		zap.String("phase", string(task.Phase)),
		zap.String("node", task.Node.DisplayName()),
		zap.Int("items", len(task.Items)))

	callCtx := ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	// 2. 执行: collect 走 Fetch，其它阶段按顺序执行所有命令
	var results []*executor.Result
	var errs []error
	if task.Phase == model.PhaseCollect {
		res, err := a.executor.Fetch(callCtx, task.Node, task.RemotePath, task.LocalPath)
		results = append(results, res)
		errs = append(errs, err)
	} else {
		// 前一条命令失败不影响后一条执行
		for _, cmd := range task.Commands {
			res, err := a.executor.Run(callCtx, task.Node, cmd)
			results = append(results, res)
			errs = append(errs, err)
		}
	}

	// 3. 根据结果更新最终状态
	a.record(task, results, errs)
	task.Status.EndTime = time.Now()

	if task.Failed() {
		logger.Debug("task failed",
			zap.String("phase", string(task.Phase)),
			zap.String("node", task.Node.Address),
			zap.String("reason", task.FailureReason()))
	}

	// 4. 保存日志 (开启 store 时)
	a.saveLog(ctx, task, results)

	if a.onFinish != nil {
		a.onFinish(task)
	}
}

func (a *Agent) record(task *model.Task, results []*executor.Result, errs []error) {
	var stdout []string
	task.Status.State = model.TaskSuccess
	task.Status.ExitCode = 0

	for i, res := range results {
		if res != nil && res.Stdout != "" {
			stdout = append(stdout, strings.TrimRight(res.Stdout, "\n"))
		}
		if task.Failed() {
			continue // 只记录第一个失败
		}
		switch {
		case errs[i] != nil:
			task.Status.State = model.TaskFailed
			task.Status.ExitCode = -1
			if res != nil && res.ExitCode != 0 {
				task.Status.ExitCode = res.ExitCode
			}
			task.Status.Error = errs[i].Error()
		case res != nil && res.ExitCode != 0:
			task.Status.State = model.TaskFailed
			task.Status.ExitCode = res.ExitCode
			if msg := lastLine(res.Stderr); msg != "" {
				task.Status.Error = fmt.Sprintf("exit status %d: %s", res.ExitCode, msg)
			}
		}
	}
	task.Status.Output = strings.Join(stdout, "\n")
}

func (a *Agent) saveLog(ctx context.Context, task *model.Task, results []*executor.Result) {
	if a.store == nil || a.runID == "" {
		return
	}
	var b strings.Builder
	for _, res := range results {
		if out := res.Output(); out != "" {
			b.WriteString(out)
			if !strings.HasSuffix(out, "\n") {
				b.WriteString("\n")
			}
		}
	}
	if b.Len() == 0 {
		return
	}
	if err := a.store.SaveTaskLog(ctx, a.runID, task.ID, b.String()); err != nil {
		logger.Warn("failed to save task log", zap.String("task", task.ID), zap.Error(err))
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
