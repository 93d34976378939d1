package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
)

// Pool 每个阶段一个有界并发批次，RunBatch 返回前所有任务都已结束
type Pool struct {
	agent *Agent
}

func NewPool(agent *Agent) *Pool {
	return &Pool{agent: agent}
}

// RunBatch 最多 size 个任务同时执行，单个任务失败不影响其它任务。
// 返回的报告保持提交顺序
func (p *Pool) RunBatch(ctx context.Context, phase model.Phase, tasks []*model.Task, size int) *model.PhaseReport {
	report := &model.PhaseReport{Phase: phase, Tasks: tasks}
	if len(tasks) == 0 {
		return report
	}
	if size < 1 {
		size = 1
	}

	start := time.Now()
	var g errgroup.Group
	limiter := semaphore.NewWeighted(int64(size))

	for i, task := range tasks {
		if err := limiter.Acquire(ctx, 1); err != nil {
			// ctx 已取消: 未启动的任务直接记为失败
			for _, t := range tasks[i:] {
				t.Status.State = model.TaskFailed
				t.Status.ExitCode = -1
				t.Status.Error = err.Error()
			}
			break
		}

		g.Go(func() error {
			defer limiter.Release(1)
			p.agent.Execute(ctx, task)
			return nil
		})
	}

	_ = g.Wait()

	logger.Debug("phase finished",
		zap.String("phase", string(phase)),
		zap.Int("tasks", len(tasks)),
		zap.Int("slots", size),
		zap.Int("failed", len(report.Failures())),
		zap.Duration("elapsed", time.Since(start)))
	return report
}
