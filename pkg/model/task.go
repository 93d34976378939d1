package model

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Phase 一次运行中的阶段
type Phase string

const (
	PhaseProbe    Phase = "probe"
	PhaseSync     Phase = "sync"
	PhaseDispatch Phase = "dispatch"
	PhaseCollect  Phase = "collect"
	PhaseCleanup  Phase = "cleanup"
)

type TaskState int

const (
	TaskPending TaskState = iota // 已生成，未执行
	TaskRunning                  // 正在远程执行
	TaskSuccess                  // 所有命令退出码为 0
	TaskFailed                   // 通道错误或任一命令非 0
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskSuccess:
		return "success"
	case TaskFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Task 发往单个节点的一次远程调用，每个 Task 只被执行一次。
// Dispatch 阶段的 Task 即 DispatchTask: len(Items) <= Node.Cores
type Task struct {
	ID    string `json:"id"`
	Phase Phase  `json:"phase"`
	Node  *Node  `json:"node"`

	// Dispatch 阶段分配到的条目
	Items []string `json:"items,omitempty"`

	// 按顺序执行的远程命令 (collect 阶段为空)
	Commands []string `json:"commands,omitempty"`

	// collect 阶段: 远程路径 -> 本地目录
	RemotePath string `json:"remote_path,omitempty"`
	LocalPath  string `json:"local_path,omitempty"`

	// 单次调用的超时，0 表示只依赖通道自身的超时
	Timeout time.Duration `json:"timeout,omitempty"`

	Status struct {
		State     TaskState `json:"state"`
		ExitCode  int       `json:"exit_code"`
		Error     string    `json:"error,omitempty"`
		Output    string    `json:"-"`
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	} `json:"status"`
}

// Failed 任务是否失败
func (t *Task) Failed() bool {
	return t.Status.State == TaskFailed
}

// Plan 分区结果
type Plan struct {
	Tasks  []*Task // dispatch 任务，按生成顺序
	Tasked []*Node // 至少收到一个非空 chunk 的就绪节点，按声明顺序
}

// Items 返回计划覆盖的条目总数
func (p *Plan) Items() int {
	n := 0
	for _, t := range p.Tasks {
		n += len(t.Items)
	}
	return n
}

// PhaseReport 一个阶段 (一个 barrier batch) 的执行结果
type PhaseReport struct {
	Phase Phase
	Tasks []*Task // 与提交顺序一致
}

// Failures 返回失败的任务
func (r *PhaseReport) Failures() []*Task {
	if r == nil {
		return nil
	}
	failed := make([]*Task, 0)
	for _, t := range r.Tasks {
		if t.Failed() {
			failed = append(failed, t)
		}
	}
	return failed
}

// Err 将所有失败合并为一个 error，没有失败时返回 nil
func (r *PhaseReport) Err() error {
	var err error
	for _, t := range r.Failures() {
		err = multierr.Append(err, fmt.Errorf("%s on %s: %s", t.Phase, t.Node.Address, t.FailureReason()))
	}
	return err
}

// FailureReason 给人看的失败原因
func (t *Task) FailureReason() string {
	if t.Status.Error != "" {
		return t.Status.Error
	}
	return fmt.Sprintf("exit status %d", t.Status.ExitCode)
}
