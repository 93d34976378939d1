package executor

import (
	"context"
	"fmt"
	"time"

	"batchfleet/pkg/model"
)

// Result 一次远程调用的输出
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Output 合并 stdout 与 stderr
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Executor 远程执行通道。
// 返回 error 表示通道本身失败 (无法连接、超时、二进制缺失)；
// 远程命令的非 0 退出码放在 Result.ExitCode 中
type Executor interface {
	// Run 在节点上执行一条命令
	Run(ctx context.Context, node *model.Node, command string) (*Result, error)

	// Fetch 递归复制远程路径到本地目录
	Fetch(ctx context.Context, node *model.Node, remotePath, localDir string) (*Result, error)
}

// Router 按节点的 Transport 选择执行器
type Router struct {
	executors map[model.Transport]Executor
}

func NewRouter() *Router {
	return &Router{executors: make(map[model.Transport]Executor)}
}

// Register 注册某个通道的执行器
func (r *Router) Register(t model.Transport, e Executor) *Router {
	r.executors[t] = e
	return r
}

func (r *Router) pick(node *model.Node) (Executor, error) {
	e, ok := r.executors[node.TransportOrDefault()]
	if !ok {
		return nil, fmt.Errorf("no executor for transport %q (node %s)", node.TransportOrDefault(), node.Address)
	}
	return e, nil
}

func (r *Router) Run(ctx context.Context, node *model.Node, command string) (*Result, error) {
	e, err := r.pick(node)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, node, command)
}

func (r *Router) Fetch(ctx context.Context, node *model.Node, remotePath, localDir string) (*Result, error) {
	e, err := r.pick(node)
	if err != nil {
		return nil, err
	}
	return e.Fetch(ctx, node, remotePath, localDir)
}
