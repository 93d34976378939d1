package model

import "fmt"

// Platform 节点操作系统类型，决定远程命令模板
type Platform string

const (
	PlatformPosix   Platform = "posix"
	PlatformWindows Platform = "windows"
)

// Valid 只接受封闭集合内的平台
func (p Platform) Valid() bool {
	return p == PlatformPosix || p == PlatformWindows
}

// Transport 远程执行通道
type Transport string

const (
	TransportSSH    Transport = "ssh"    // OpenSSH ssh/scp
	TransportDocker Transport = "docker" // Address 为容器名或 ID
)

func (t Transport) Valid() bool {
	return t == "" || t == TransportSSH || t == TransportDocker
}

// Node 静态配置中声明的节点，运行期间只读
type Node struct {
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	Address   string    `json:"address" yaml:"address"` // 唯一标识
	User      string    `json:"user" yaml:"user"`
	Platform  Platform  `json:"platform" yaml:"platform"`
	Cores     int       `json:"cores" yaml:"cores"`
	Transport Transport `json:"transport,omitempty" yaml:"transport,omitempty"`
}

// Target 返回 user@address 形式的登录目标
func (n *Node) Target() string {
	if n.User == "" {
		return n.Address
	}
	return n.User + "@" + n.Address
}

// DisplayName 日志与报告中使用的名字
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Address
}

// TransportOrDefault 未声明时默认走 ssh
func (n *Node) TransportOrDefault() Transport {
	if n.Transport == "" {
		return TransportSSH
	}
	return n.Transport
}

func (n *Node) String() string {
	return fmt.Sprintf("Node: %s / Cores: %d / OS: %s", n.Address, n.Cores, n.Platform)
}
