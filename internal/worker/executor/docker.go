package executor

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"

	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
)

// dockerAPI DockerExecutor 用到的 Engine API 子集
type dockerAPI interface {
	ContainerExecCreate(ctx context.Context, container string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, types.ContainerPathStat, error)
}

// DockerExecutor 把容器当作节点: Address 是容器名或 ID，
// 命令通过 exec 执行，收集通过 archive 复制
type DockerExecutor struct {
	cli dockerAPI
}

// NewDockerExecutor 从环境变量 (DOCKER_HOST 等) 或指定 host 连接 Docker
func NewDockerExecutor(host, apiVersion string) (*DockerExecutor, error) {
	opts := []client.Opt{client.FromEnv}
	if apiVersion != "" {
		opts = append(opts, client.WithVersion(apiVersion))
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &DockerExecutor{cli: cli}, nil
}

func newDockerExecutorWithAPI(api dockerAPI) *DockerExecutor {
	return &DockerExecutor{cli: api}
}

func shellCommand(node *model.Node, command string) []string {
	if node.Platform == model.PlatformWindows {
		return []string{"cmd", "/C", command}
	}
	return []string{"sh", "-c", command}
}

// Run 在容器内执行命令
func (e *DockerExecutor) Run(ctx context.Context, node *model.Node, command string) (*Result, error) {
	start := time.Now()
	logger.Debug("docker exec", zap.String("container", node.Address), zap.String("cmd", command))

	// 1. 创建 exec 实例
	created, err := e.cli.ContainerExecCreate(ctx, node.Address, types.ExecConfig{
		User:         node.User,
		Cmd:          shellCommand(node, command),
		AttachStdout: true,
		AttachStderr: true,
		Tty:          false,
	})
	if err != nil {
		return &Result{ExitCode: -1}, fmt.Errorf("docker exec create on %s: %w", node.Address, err)
	}

	// 2. attach 并读取输出，stdcopy 拆分多路复用流
	resp, err := e.cli.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return &Result{ExitCode: -1}, fmt.Errorf("docker exec attach on %s: %w", node.Address, err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil {
		return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1},
			fmt.Errorf("docker exec read on %s: %w", node.Address, err)
	}

	// 3. 查询退出码
	inspect, err := e.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1},
			fmt.Errorf("docker exec inspect on %s: %w", node.Address, err)
	}

	return &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
		Duration: time.Since(start),
	}, nil
}

// Fetch 把容器内目录的内容解包到 localDir。
// remotePath 可以是 ~/dir/* 或 %userprofile%\dir\* 形式
func (e *DockerExecutor) Fetch(ctx context.Context, node *model.Node, remotePath, localDir string) (*Result, error) {
	start := time.Now()

	src, err := e.resolvePath(ctx, node, remotePath)
	if err != nil {
		return &Result{ExitCode: -1}, err
	}

	reader, _, err := e.cli.CopyFromContainer(ctx, node.Address, src)
	if err != nil {
		return &Result{ExitCode: -1}, fmt.Errorf("docker copy from %s:%s: %w", node.Address, src, err)
	}
	defer reader.Close()

	files, err := extractArchive(reader, localDir)
	if err != nil {
		return &Result{ExitCode: 1, Stderr: err.Error()}, nil
	}

	return &Result{
		Stdout:   fmt.Sprintf("copied %d files from %s:%s", files, node.Address, src),
		Duration: time.Since(start),
	}, nil
}

// resolvePath 展开 home 前缀并去掉末尾通配符，CopyFromContainer 需要绝对路径
func (e *DockerExecutor) resolvePath(ctx context.Context, node *model.Node, remotePath string) (string, error) {
	p := strings.ReplaceAll(remotePath, `\`, "/")
	p = strings.TrimSuffix(p, "/*")
	p = strings.TrimSuffix(p, "/")

	var rest string
	switch {
	case strings.HasPrefix(p, "~/"):
		rest = strings.TrimPrefix(p, "~/")
	case strings.HasPrefix(strings.ToLower(p), "%userprofile%/"):
		rest = p[len("%userprofile%/"):]
	default:
		return p, nil
	}

	home, err := e.homeDir(ctx, node)
	if err != nil {
		return "", err
	}
	return path.Join(strings.ReplaceAll(home, `\`, "/"), rest), nil
}

func (e *DockerExecutor) homeDir(ctx context.Context, node *model.Node) (string, error) {
	cmd := `printf %s "$HOME"`
	if node.Platform == model.PlatformWindows {
		cmd = "echo %USERPROFILE%"
	}
	res, err := e.Run(ctx, node, cmd)
	if err != nil {
		return "", err
	}
	home := strings.TrimSpace(res.Stdout)
	if res.ExitCode != 0 || home == "" {
		return "", fmt.Errorf("cannot resolve home directory in %s (exit %d)", node.Address, res.ExitCode)
	}
	return home, nil
}

// extractArchive 解包 CopyFromContainer 返回的 tar 流。
// 第一层目录 (被复制目录本身) 被去掉，只保留其内容
func extractArchive(r io.Reader, localDir string) (int, error) {
	root, err := filepath.Abs(localDir)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return 0, err
	}

	files := 0
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return files, fmt.Errorf("read archive: %w", err)
		}

		name := strings.TrimPrefix(path.Clean("/"+hdr.Name), "/")
		if i := strings.Index(name, "/"); i >= 0 {
			name = name[i+1:]
		} else {
			continue // 根目录本身
		}
		if name == "" {
			continue
		}

		target := filepath.Join(root, filepath.FromSlash(name))
		if rel, err := filepath.Rel(root, target); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return files, fmt.Errorf("archive entry escapes export path: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return files, err
			}
			if err := writeFile(target, tr, os.FileMode(hdr.Mode)&0o777); err != nil {
				return files, err
			}
			files++
		}
	}
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
