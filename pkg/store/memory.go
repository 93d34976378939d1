package store

import (
	"context"
	"fmt"
	"sync"

	"batchfleet/pkg/model"
)

// MemoryStore 进程内实现，用于测试与不需要持久化的场景
type MemoryStore struct {
	runs map[string]*model.RunSummary
	logs map[string]string

	subscribers []chan RunEvent
	subMu       sync.RWMutex

	mu sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*model.RunSummary),
		logs: make(map[string]string),
	}
}

func (m *MemoryStore) SaveRun(ctx context.Context, run *model.RunSummary) error {
	if run == nil || run.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	cp := *run
	m.mu.Lock()
	m.runs[run.RunID] = &cp
	m.mu.Unlock()

	m.notify(RunEvent{Type: RunSaved, Run: &cp})
	return nil
}

func (m *MemoryStore) GetRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	cp := *run
	return &cp, nil
}

func (m *MemoryStore) ListRuns(ctx context.Context) ([]*model.RunSummary, error) {
	m.mu.RLock()
	runs := make([]*model.RunSummary, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		runs = append(runs, &cp)
	}
	m.mu.RUnlock()
	sortRuns(runs)
	return runs, nil
}

func (m *MemoryStore) SaveTaskLog(ctx context.Context, runID, taskID, logs string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[logKey(runID, taskID)] = logs
	return nil
}

func (m *MemoryStore) GetTaskLog(ctx context.Context, runID, taskID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	logs, ok := m.logs[logKey(runID, taskID)]
	if !ok {
		return "", fmt.Errorf("log for task %s: %w", taskID, ErrNotFound)
	}
	return logs, nil
}

func (m *MemoryStore) WatchRuns(ctx context.Context) <-chan RunEvent {
	ch := make(chan RunEvent, 100)

	m.subMu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.subMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		for i, sub := range m.subscribers {
			if sub == ch {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				break
			}
		}
		m.subMu.Unlock()
		close(ch)
	}()

	return ch
}

func (m *MemoryStore) notify(event RunEvent) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			// 通道已满，丢弃
		}
	}
}

func (m *MemoryStore) Close() error {
	return nil
}
