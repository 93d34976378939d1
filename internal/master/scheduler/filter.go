package scheduler

import (
	"context"

	"go.uber.org/zap"

	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
)

// FilterReady 并发探测所有声明的节点，返回探测成功的节点 (保持声明顺序)。
// 非 0 退出、连接失败或超时的节点被静默排除，不重试
func (s *Scheduler) FilterReady(ctx context.Context, nodes []*model.Node) []*model.Node {
	if len(nodes) == 0 {
		return []*model.Node{}
	}

	tasks := make([]*model.Task, 0, len(nodes))
	for _, n := range nodes {
		t := newTask(model.PhaseProbe, n)
		t.Commands = []string{s.commands.Probe(n.Platform)}
		t.Timeout = s.probeTimeout
		tasks = append(tasks, t)
	}

	report := s.runner.RunBatch(ctx, model.PhaseProbe, tasks, len(nodes))

	ready := make([]*model.Node, 0, len(nodes))
	for _, t := range report.Tasks {
		if s.checkNode(t) {
			ready = append(ready, t.Node)
		}
	}
	return ready
}

// checkNode 探测任务成功即视为就绪
func (s *Scheduler) checkNode(t *model.Task) bool {
	if t.Status.State != model.TaskSuccess {
		logger.Debug("node filtered: probe failed",
			zap.String("node", t.Node.Address),
			zap.Int("exit_code", t.Status.ExitCode),
			zap.String("error", t.Status.Error))
		return false
	}
	return true
}
