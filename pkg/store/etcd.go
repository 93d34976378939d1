package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
)

// Key 前缀
const (
	RunKeyPrefix = "/batchfleet/runs/"
	LogKeyPrefix = "/batchfleet/logs/"
)

type EtcdStore struct {
	client *clientv3.Client
}

// NewEtcdStore 初始化 Etcd 连接
func NewEtcdStore(endpoints []string, dialTimeout time.Duration) (*EtcdStore, error) {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdStore{client: cli}, nil
}

func runKey(runID string) string {
	return RunKeyPrefix + runID
}

func logKey(runID, taskID string) string {
	return LogKeyPrefix + runID + "/" + taskID
}

func (e *EtcdStore) SaveRun(ctx context.Context, run *model.RunSummary) error {
	if run == nil || run.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	return e.putValue(ctx, runKey(run.RunID), run)
}

func (e *EtcdStore) GetRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	resp, err := e.client.Get(ctx, runKey(runID))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	var run model.RunSummary
	if err := json.Unmarshal(resp.Kvs[0].Value, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (e *EtcdStore) ListRuns(ctx context.Context) ([]*model.RunSummary, error) {
	resp, err := e.client.Get(ctx, RunKeyPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	runs := make([]*model.RunSummary, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var run model.RunSummary
		if err := json.Unmarshal(kv.Value, &run); err != nil {
			logger.Warn("failed to unmarshal run", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		runs = append(runs, &run)
	}
	sortRuns(runs)
	return runs, nil
}

// WatchRuns 将 Etcd 的 Watch 转换为业务 Channel
func (e *EtcdStore) WatchRuns(ctx context.Context) <-chan RunEvent {
	eventChan := make(chan RunEvent)

	go func() {
		defer close(eventChan)
		watchChan := e.client.Watch(ctx, RunKeyPrefix, clientv3.WithPrefix())

		for watchResp := range watchChan {
			for _, ev := range watchResp.Events {
				event := RunEvent{Type: RunSaved}
				if ev.Type == clientv3.EventTypeDelete {
					event.Type = RunDeleted
					event.Run = &model.RunSummary{RunID: string(ev.Kv.Key[len(RunKeyPrefix):])}
				} else {
					var run model.RunSummary
					if err := json.Unmarshal(ev.Kv.Value, &run); err != nil {
						logger.Warn("failed to unmarshal run event", zap.Error(err))
						continue
					}
					event.Run = &run
				}

				select {
				case eventChan <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return eventChan
}

func (e *EtcdStore) SaveTaskLog(ctx context.Context, runID, taskID, logs string) error {
	data := map[string]string{
		"task_id": taskID,
		"content": logs,
	}
	return e.putValue(ctx, logKey(runID, taskID), data)
}

func (e *EtcdStore) GetTaskLog(ctx context.Context, runID, taskID string) (string, error) {
	resp, err := e.client.Get(ctx, logKey(runID, taskID))
	if err != nil {
		return "", err
	}
	if len(resp.Kvs) == 0 {
		return "", fmt.Errorf("log for task %s: %w", taskID, ErrNotFound)
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Kvs[0].Value, &data); err != nil {
		return "", err
	}
	return data["content"], nil
}

func (e *EtcdStore) Close() error {
	return e.client.Close()
}

// putValue 封装通用的 JSON 序列化 + Put 操作
func (e *EtcdStore) putValue(ctx context.Context, key string, val interface{}) error {
	bytes, err := json.Marshal(val)
	if err != nil {
		return err
	}
	_, err = e.client.Put(ctx, key, string(bytes))
	return err
}

// sortRuns 最近的运行在前
func sortRuns(runs []*model.RunSummary) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
}
