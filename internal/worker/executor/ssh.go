package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
)

// sshConnectFailure OpenSSH 自身出错 (连接/认证失败) 时的退出码
const sshConnectFailure = 255

const waitDelay = 2 * time.Second

// SSHExecutor 通过系统的 ssh/scp 执行。
// 信任关系 (密钥、agent、~/.ssh/config) 完全交给 OpenSSH
type SSHExecutor struct {
	Binary    string
	SCPBinary string
	Options   []string
}

func NewSSHExecutor(binary, scpBinary string, options []string) *SSHExecutor {
	if binary == "" {
		binary = "ssh"
	}
	if scpBinary == "" {
		scpBinary = "scp"
	}
	return &SSHExecutor{Binary: binary, SCPBinary: scpBinary, Options: options}
}

// RunArgs ssh 的参数: [options...] user@address command
func (e *SSHExecutor) RunArgs(node *model.Node, command string) []string {
	args := make([]string, 0, len(e.Options)+2)
	args = append(args, e.Options...)
	return append(args, node.Target(), command)
}

// FetchArgs scp 的参数: -r [options...] user@address:remote local
func (e *SSHExecutor) FetchArgs(node *model.Node, remotePath, localDir string) []string {
	args := make([]string, 0, len(e.Options)+3)
	args = append(args, "-r")
	args = append(args, e.Options...)
	return append(args, node.Target()+":"+remotePath, localDir)
}

func (e *SSHExecutor) Run(ctx context.Context, node *model.Node, command string) (*Result, error) {
	res, err := runLocal(ctx, e.Binary, e.RunArgs(node, command)...)
	if err == nil && res.ExitCode == sshConnectFailure {
		logger.Debug("ssh exited with 255, connection likely failed", zap.String("node", node.Address))
	}
	return res, err
}

func (e *SSHExecutor) Fetch(ctx context.Context, node *model.Node, remotePath, localDir string) (*Result, error) {
	return runLocal(ctx, e.SCPBinary, e.FetchArgs(node, remotePath, localDir)...)
}

// runLocal 执行本地进程并捕获输出。
// 进程正常退出 (含非 0) 不算 error；启动失败或 ctx 结束才返回 error
func runLocal(ctx context.Context, name string, args ...string) (*Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// 子进程残留时不无限等待输出管道
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}
