package scheduler

import (
	"regexp"
	"strings"

	"batchfleet/pkg/model"
)

// Layout 节点上处理程序的布局，路径相对登录用户 home
type Layout struct {
	ProgramDir         string
	Program            string
	ScratchDir         string
	PosixInterpreter   string
	WindowsInterpreter string
	ExtraArgs          []string
}

// Commands 按平台生成各阶段的远程命令
type Commands struct {
	layout Layout
}

func NewCommands(layout Layout) *Commands {
	return &Commands{layout: layout}
}

func (c *Commands) programPath(p model.Platform) string {
	if p == model.PlatformWindows {
		return joinWindows(`%userprofile%`, c.layout.ProgramDir, c.layout.Program)
	}
	return joinPosix("~", c.layout.ProgramDir, c.layout.Program)
}

func (c *Commands) scratchPath(p model.Platform) string {
	if p == model.PlatformWindows {
		return joinWindows(`%userprofile%`, c.layout.ScratchDir)
	}
	return joinPosix("~", c.layout.ScratchDir)
}

func (c *Commands) interpreter(p model.Platform) string {
	if p == model.PlatformWindows {
		return c.layout.WindowsInterpreter
	}
	return c.layout.PosixInterpreter
}

func (c *Commands) invoke(p model.Platform) string {
	if in := c.interpreter(p); in != "" {
		return in + " " + c.programPath(p)
	}
	return c.programPath(p)
}

// Probe 检查处理程序是否存在，存在时退出码为 0
func (c *Commands) Probe(p model.Platform) string {
	if p == model.PlatformWindows {
		return "if exist " + c.programPath(p) + " (cd.) else (call)"
	}
	return "test -f " + c.programPath(p)
}

// MakeScratch 创建节点本地临时输出目录
func (c *Commands) MakeScratch(p model.Platform) string {
	if p == model.PlatformWindows {
		return "mkdir " + c.scratchPath(p)
	}
	return "mkdir -p " + c.scratchPath(p)
}

// Process 处理一组条目，输出写到临时目录
func (c *Commands) Process(p model.Platform, items []string) string {
	var b strings.Builder
	b.WriteString(c.invoke(p))
	b.WriteString(" -e ")
	if p == model.PlatformWindows {
		b.WriteString(c.scratchPath(p))
	} else {
		b.WriteString(c.scratchPath(p) + "/")
	}
	for _, arg := range c.layout.ExtraArgs {
		b.WriteString(" " + arg)
	}
	for _, item := range items {
		b.WriteString(" " + quote(p, item))
	}
	return b.String()
}

// Update 让处理程序更新版本库 (-u)
func (c *Commands) Update(p model.Platform) string {
	return c.invoke(p) + " -u"
}

// CollectPath 收集阶段复制的远程路径
func (c *Commands) CollectPath(p model.Platform) string {
	if p == model.PlatformWindows {
		return c.scratchPath(p) + `\*`
	}
	return c.scratchPath(p) + "/*"
}

// Cleanup 递归删除临时目录
func (c *Commands) Cleanup(p model.Platform) string {
	if p == model.PlatformWindows {
		return "rmdir /Q /S " + c.scratchPath(p)
	}
	return "rm -rf " + c.scratchPath(p)
}

func joinPosix(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, strings.Trim(p, "/"))
		}
	}
	return strings.Join(out, "/")
}

func joinWindows(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, strings.Trim(p, `\`))
		}
	}
	return strings.Join(out, `\`)
}

var safeArg = regexp.MustCompile(`^[A-Za-z0-9_./:@+=,-]+$`)

// quote 条目 ID 原样作为参数，只有含特殊字符时才加引号
func quote(p model.Platform, s string) string {
	if safeArg.MatchString(s) {
		return s
	}
	if p == model.PlatformWindows {
		q := `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
		// 引号挡不住 cmd.exe 的 %NAME% 展开，整体改用 ^ 转义
		if strings.Contains(s, "%") {
			return caretEscape(q)
		}
		return q
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// caretEscape 在 cmd.exe 元字符前加 ^，%NAME^% 查不到变量而原样保留
func caretEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`^&|<>()%!"`, r) {
			b.WriteByte('^')
		}
		b.WriteRune(r)
	}
	return b.String()
}
