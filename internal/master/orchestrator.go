package master

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"batchfleet/internal/config"
	"batchfleet/internal/master/scheduler"
	"batchfleet/internal/worker"
	"batchfleet/internal/worker/executor"
	"batchfleet/pkg/catalogue"
	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
	"batchfleet/pkg/store"
)

const prefix = "batchfleet: "

// RunOptions 一次运行的参数，由配置与命令行合并得到，运行期间只读
type RunOptions struct {
	CataloguePath string
	ExportPath    string
	Selection     catalogue.Selection
	ListOnly      bool
	UpdateRepos   bool
}

// Orchestrator 阶段状态机
type Orchestrator struct {
	nodes        []*model.Node
	executor     executor.Executor
	store        store.Store // 可为 nil
	commands     *scheduler.Commands
	strategy     scheduler.Strategy
	probeTimeout time.Duration
	out          io.Writer
	outMu        sync.Mutex // 分发阶段多个 goroutine 同时输出
	quiet        bool
}

// NewOrchestrator 构造函数 (依赖注入)
func NewOrchestrator(cfg *config.Config, exec executor.Executor, s store.Store, out io.Writer) *Orchestrator {
	if out == nil {
		out = os.Stdout
	}
	return &Orchestrator{
		nodes:    cfg.Nodes,
		executor: exec,
		store:    s,
		commands: scheduler.NewCommands(scheduler.Layout{
			ProgramDir:         cfg.Remote.ProgramDir,
			Program:            cfg.Remote.Program,
			ScratchDir:         cfg.Remote.ScratchDir,
			PosixInterpreter:   cfg.Remote.PosixInterpreter,
			WindowsInterpreter: cfg.Remote.WindowsInterpreter,
			ExtraArgs:          cfg.Remote.ExtraArgs,
		}),
		strategy:     scheduler.Strategy(cfg.Dispatch.Strategy),
		probeTimeout: cfg.Probe.Timeout,
		out:          out,
	}
}

// SetQuiet 不打印远程任务的输出
func (o *Orchestrator) SetQuiet(quiet bool) {
	o.quiet = quiet
}

func (o *Orchestrator) printf(format string, args ...interface{}) {
	o.outMu.Lock()
	defer o.outMu.Unlock()
	fmt.Fprintf(o.out, format, args...)
}

// taskFinished 节点完成分发任务后立即打印其输出，不等待 barrier
func (o *Orchestrator) taskFinished(t *model.Task) {
	if t.Phase != model.PhaseDispatch || o.quiet || t.Status.Output == "" {
		return
	}
	o.printf("%s\n", t.Status.Output)
}

func (o *Orchestrator) newScheduler(runID string) *scheduler.Scheduler {
	agent := worker.NewAgent(o.executor, o.store, runID).OnFinish(o.taskFinished)
	pool := worker.NewPool(agent)
	return scheduler.NewScheduler(pool, o.commands, o.strategy, o.probeTimeout)
}

// Probe 只探测节点并打印名单 (nodes 子命令)
func (o *Orchestrator) Probe(ctx context.Context) []*model.Node {
	return o.probe(ctx, o.newScheduler(""))
}

func (o *Orchestrator) probe(ctx context.Context, sched *scheduler.Scheduler) []*model.Node {
	ready := sched.FilterReady(ctx, o.nodes)
	if len(ready) == 0 {
		o.printf("%sno available nodes\n", prefix)
		return ready
	}
	o.printf("%sactive nodes\n", prefix)
	for _, n := range ready {
		o.printf("%s\n", n)
	}
	return ready
}

// Run 执行一次完整运行。
// 远程失败不会返回 error，只记录在 summary.Failures 中
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*model.RunSummary, error) {
	runID := uuid.NewString()
	summary := &model.RunSummary{RunID: runID, StartedAt: time.Now()}
	log := logger.L().With(zap.String("run_id", runID))

	// 0. 参数校验
	exportPath, err := o.prepare(opts)
	if err != nil {
		o.printf("%s%v\n", prefix, err)
		return summary, err
	}

	sched := o.newScheduler(runID)

	// 1. 探测节点
	ready := o.probe(ctx, sched)
	summary.Nodes = addresses(ready)
	if len(ready) == 0 {
		summary.Outcome = model.OutcomeNoNodes
		o.save(ctx, summary)
		return summary, nil
	}

	// 2. 更新所有就绪节点的版本库 (list-only 时同样执行)
	if opts.UpdateRepos {
		o.printf("\n%supdating repositories\n", prefix)
		report := sched.Run(ctx, model.PhaseSync, sched.SyncTasks(ready), len(ready))
		addFailures(log, summary, report)
	}

	// 3. 选择条目
	items, err := o.selectItems(log, opts)
	if err != nil {
		o.printf("%s%v\n", prefix, err)
		summary.Outcome = model.OutcomeNothingSelected
		o.save(ctx, summary)
		return summary, err
	}
	summary.Items = len(items)
	summary.ItemIDs = items

	if opts.ListOnly {
		o.printf("Found %d items:\n", len(items))
		for _, id := range items {
			o.printf("%s\n", id)
		}
		summary.Outcome = model.OutcomeListed
		o.save(ctx, summary)
		return summary, nil
	}

	plan := sched.Plan(items, ready)
	summary.Tasked = addresses(plan.Tasked)
	log.Info("run planned",
		zap.Int("items", plan.Items()),
		zap.Int("ready", len(ready)),
		zap.Int("tasks", len(plan.Tasks)),
		zap.Int("tasked", len(plan.Tasked)))

	start := time.Now()

	// 4. 分发
	o.printf("\n%sassigning tasks\n", prefix)
	report := sched.Run(ctx, model.PhaseDispatch, plan.Tasks, min(len(plan.Tasks), len(ready)))
	addFailures(log, summary, report)

	// 5. 收集 (只针对 tasked 节点)
	report = sched.Run(ctx, model.PhaseCollect, sched.CollectTasks(plan.Tasked, exportPath), len(plan.Tasked))
	for _, t := range report.Tasks {
		if !t.Failed() {
			o.printf("%sresults collected from %s to %s\n", prefix, t.Node.Address, t.LocalPath)
		}
	}
	addFailures(log, summary, report)

	// 6. 清理 (只针对 tasked 节点)
	report = sched.Run(ctx, model.PhaseCleanup, sched.CleanupTasks(plan.Tasked), len(plan.Tasked))
	addFailures(log, summary, report)

	summary.Duration = time.Since(start)
	summary.Outcome = model.OutcomeComplete
	if len(summary.Failures) > 0 {
		summary.Outcome = model.OutcomeCompleteWithFailures
	}

	// 7. 汇总
	o.report(summary)
	o.save(ctx, summary)
	if err := summary.Err(); err != nil {
		log.Warn("run completed with remote failures", zap.Error(err))
	}
	return summary, nil
}

// prepare 校验参数，返回绝对导出路径 (list-only 时为空)
func (o *Orchestrator) prepare(opts RunOptions) (string, error) {
	if opts.CataloguePath == "" {
		return "", ErrCataloguePathRequired
	}
	if opts.ListOnly {
		return "", nil
	}
	if opts.ExportPath == "" {
		return "", ErrExportPathRequired
	}
	abs, err := filepath.Abs(opts.ExportPath)
	if err != nil {
		return "", fmt.Errorf("resolve export path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("create export path: %w", err)
	}
	return abs, nil
}

// addFailures 记录一个阶段的失败，阶段本身继续
func addFailures(log *zap.Logger, summary *model.RunSummary, report *model.PhaseReport) {
	summary.AddFailures(report)
	if err := report.Err(); err != nil {
		log.Warn("phase finished with failures", zap.String("phase", string(report.Phase)), zap.Error(err))
	}
}

func (o *Orchestrator) selectItems(log *zap.Logger, opts RunOptions) ([]string, error) {
	cat, err := catalogue.Load(opts.CataloguePath)
	if err != nil {
		return nil, err
	}
	log.Debug("catalogue loaded",
		zap.Strings("categories", cat.Categories()),
		zap.Int("items", cat.Len()))
	items, err := catalogue.Select(cat, opts.Selection)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w for export", catalogue.ErrNothingSelected)
	}
	return items, nil
}

func (o *Orchestrator) report(summary *model.RunSummary) {
	o.printf("%sexport finished!\n", prefix)
	o.printf("Duration: %.2f seconds\n", summary.Duration.Seconds())
	o.printf("Items exported: %d\n", summary.Items)
	if len(summary.Failures) == 0 {
		return
	}
	o.printf("%s%d remote task(s) failed:\n", prefix, len(summary.Failures))
	for _, f := range summary.Failures {
		o.printf("  %s\n", f)
	}
}

func (o *Orchestrator) save(ctx context.Context, summary *model.RunSummary) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveRun(ctx, summary); err != nil {
		logger.Warn("failed to save run", zap.String("run_id", summary.RunID), zap.Error(err))
	}
}

func addresses(nodes []*model.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Address)
	}
	return out
}

// FormatSummary 单行描述，用于 history 列表
func FormatSummary(s *model.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %-22s items=%d nodes=%d",
		s.RunID, s.StartedAt.Format(time.RFC3339), s.Outcome, s.Items, len(s.Nodes))
	if s.Duration > 0 {
		fmt.Fprintf(&b, " duration=%.2fs", s.Duration.Seconds())
	}
	if n := len(s.Failures); n > 0 {
		fmt.Fprintf(&b, " failures=%d", n)
	}
	return b.String()
}
