package model

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Outcome 一次运行的终止状态
type Outcome string

const (
	OutcomeNoNodes              Outcome = "no_nodes"
	OutcomeNothingSelected      Outcome = "nothing_selected"
	OutcomeListed               Outcome = "listed"
	OutcomeComplete             Outcome = "complete"
	OutcomeCompleteWithFailures Outcome = "complete_with_failures"
)

// TaskFailure 汇总中记录的单个失败
type TaskFailure struct {
	Phase    Phase  `json:"phase"`
	Node     string `json:"node"`
	TaskID   string `json:"task_id"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

func (f TaskFailure) String() string {
	if f.Error != "" {
		return fmt.Sprintf("[%s] %s: %s", f.Phase, f.Node, f.Error)
	}
	return fmt.Sprintf("[%s] %s: exit status %d", f.Phase, f.Node, f.ExitCode)
}

// RunSummary 运行结束时打印的汇总，开启 store 时同时持久化
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Outcome   Outcome       `json:"outcome"`
	Items     int           `json:"items"`
	ItemIDs   []string      `json:"item_ids,omitempty"`
	Nodes     []string      `json:"nodes"`
	Tasked    []string      `json:"tasked,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Failures  []TaskFailure `json:"failures,omitempty"`
}

// AddFailures 把阶段报告中的失败并入汇总
func (s *RunSummary) AddFailures(r *PhaseReport) {
	for _, t := range r.Failures() {
		s.Failures = append(s.Failures, TaskFailure{
			Phase:    t.Phase,
			Node:     t.Node.Address,
			TaskID:   t.ID,
			ExitCode: t.Status.ExitCode,
			Error:    t.Status.Error,
		})
	}
}

// Err 合并所有远程失败
func (s *RunSummary) Err() error {
	var err error
	for _, f := range s.Failures {
		err = multierr.Append(err, errors.New(f.String()))
	}
	return err
}
