package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
)

// BatchRunner 以 barrier 方式执行一个阶段的任务 (worker.Pool 实现)
type BatchRunner interface {
	RunBatch(ctx context.Context, phase model.Phase, tasks []*model.Task, size int) *model.PhaseReport
}

// Scheduler 负责节点探测、分区与各阶段任务的生成
type Scheduler struct {
	runner       BatchRunner
	commands     *Commands
	strategy     Strategy
	probeTimeout time.Duration
}

// NewScheduler 构造函数
func NewScheduler(runner BatchRunner, commands *Commands, strategy Strategy, probeTimeout time.Duration) *Scheduler {
	if strategy == "" {
		strategy = StrategySweep
	}
	return &Scheduler{
		runner:       runner,
		commands:     commands,
		strategy:     strategy,
		probeTimeout: probeTimeout,
	}
}

func newTask(phase model.Phase, node *model.Node) *model.Task {
	t := &model.Task{
		ID:    uuid.NewString(),
		Phase: phase,
		Node:  node,
	}
	t.Status.State = model.TaskPending
	return t
}

// Plan 对就绪节点分区，生成 dispatch 任务与 TaskedNodeSet
func (s *Scheduler) Plan(items []string, ready []*model.Node) *model.Plan {
	chunks := Partition(items, ready, s.strategy)

	plan := &model.Plan{
		Tasks:  make([]*model.Task, 0, len(chunks)),
		Tasked: make([]*model.Node, 0),
	}
	tasked := make(map[string]bool)
	for _, c := range chunks {
		if !c.Node.Fits(len(c.Items)) {
			logger.Warn("chunk exceeds node cores",
				zap.String("node", c.Node.Address),
				zap.Int("items", len(c.Items)),
				zap.Int("cores", c.Node.Cores))
		}
		t := newTask(model.PhaseDispatch, c.Node)
		t.Items = c.Items
		t.Commands = []string{
			s.commands.MakeScratch(c.Node.Platform),
			s.commands.Process(c.Node.Platform, c.Items),
		}
		plan.Tasks = append(plan.Tasks, t)
		tasked[c.Node.Address] = true
	}

	// 保持声明顺序
	for _, n := range ready {
		if tasked[n.Address] {
			plan.Tasked = append(plan.Tasked, n)
		}
	}

	logger.Debug("partition done",
		zap.String("strategy", string(s.strategy)),
		zap.Int("items", len(items)),
		zap.Int("tasks", len(plan.Tasks)),
		zap.Int("tasked", len(plan.Tasked)))
	return plan
}

// SyncTasks 每个就绪节点一个版本库更新任务
func (s *Scheduler) SyncTasks(ready []*model.Node) []*model.Task {
	tasks := make([]*model.Task, 0, len(ready))
	for _, n := range ready {
		t := newTask(model.PhaseSync, n)
		t.Commands = []string{s.commands.Update(n.Platform)}
		tasks = append(tasks, t)
	}
	return tasks
}

// CollectTasks 只针对 tasked 节点，把临时目录内容复制到 exportPath
func (s *Scheduler) CollectTasks(tasked []*model.Node, exportPath string) []*model.Task {
	tasks := make([]*model.Task, 0, len(tasked))
	for _, n := range tasked {
		t := newTask(model.PhaseCollect, n)
		t.RemotePath = s.commands.CollectPath(n.Platform)
		t.LocalPath = exportPath
		tasks = append(tasks, t)
	}
	return tasks
}

// CleanupTasks 只针对 tasked 节点，删除临时目录
func (s *Scheduler) CleanupTasks(tasked []*model.Node) []*model.Task {
	tasks := make([]*model.Task, 0, len(tasked))
	for _, n := range tasked {
		t := newTask(model.PhaseCleanup, n)
		t.Commands = []string{s.commands.Cleanup(n.Platform)}
		tasks = append(tasks, t)
	}
	return tasks
}

// Run 执行一个阶段，size 为参与节点数
func (s *Scheduler) Run(ctx context.Context, phase model.Phase, tasks []*model.Task, size int) *model.PhaseReport {
	if len(tasks) == 0 {
		return &model.PhaseReport{Phase: phase}
	}
	return s.runner.RunBatch(ctx, phase, tasks, size)
}
