package store

import (
	"context"
	"errors"

	"batchfleet/pkg/model"
)

var ErrNotFound = errors.New("not found")

// RunEventType 监听事件类型
type RunEventType int

const (
	RunSaved RunEventType = iota
	RunDeleted
)

// RunEvent 运行记录的变化
type RunEvent struct {
	Type RunEventType
	Run  *model.RunSummary
}

// Store 运行历史存储。
// 任何实现了这个接口的 Struct (EtcdStore、MemoryStore) 都可以注入到 Orchestrator
type Store interface {
	// SaveRun 保存运行汇总 (同一 RunID 覆盖)
	SaveRun(ctx context.Context, run *model.RunSummary) error

	// GetRun 获取单次运行
	GetRun(ctx context.Context, runID string) (*model.RunSummary, error)

	// ListRuns 按开始时间倒序返回所有运行
	ListRuns(ctx context.Context) ([]*model.RunSummary, error)

	// SaveTaskLog / GetTaskLog 单个远程任务的输出
	SaveTaskLog(ctx context.Context, runID, taskID, logs string) error
	GetTaskLog(ctx context.Context, runID, taskID string) (string, error)

	// WatchRuns 监听运行记录变化，ctx 结束后通道关闭
	WatchRuns(ctx context.Context) <-chan RunEvent

	Close() error
}
