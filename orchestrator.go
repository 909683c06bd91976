package miroflow

import (
	"context"
	"log/slog"
	"time"
)

// Task is one unit of work submitted to an Orchestrator.
type Task struct {
	// ID names the workflow; empty gets a fresh id.
	ID string
	// Description is the user's task text.
	Description string
	// FileName optionally attaches a task file; its type is advertised to
	// the model in the preprocessed task text.
	FileName string
	// GroundTruth, when known, is recorded in the task log for later judging.
	GroundTruth string
}

// Orchestrator is the top-level façade: it owns the event stream, runs the
// main agent loop, the final summary, and the optional answer extraction.
// One Orchestrator serves one task run at a time; run several tasks
// concurrently by creating one Orchestrator per task.
type Orchestrator struct {
	cfg       *Config
	client    LLMClient
	subClient LLMClient
	helper    LLMClient
	tools     ToolRegistry
	subTools  map[string]ToolRegistry
	emitter   *Emitter
	tracer    Tracer
	taskLog   *TaskTracer
	logger    *slog.Logger

	summaryRetryDelay  time.Duration
	toolRetryBaseDelay time.Duration
	toolCallTimeout    time.Duration
	sleep              func(ctx context.Context, d time.Duration) error
	now                func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSubAgentClient sets a separate LLM client for sub-agent sessions.
// Without it, sub-agents share the main client (and its usage counters).
func WithSubAgentClient(c LLMClient) Option {
	return func(o *Orchestrator) { o.subClient = c }
}

// WithHelperClient sets the auxiliary client used for hint generation and
// final-answer extraction. Those features stay off without it, whatever the
// config says.
func WithHelperClient(c LLMClient) Option {
	return func(o *Orchestrator) { o.helper = c }
}

// WithSubAgentTools maps sub-agent server names ("agent-worker", ...) to the
// tool registries their sessions may use.
func WithSubAgentTools(m map[string]ToolRegistry) Option {
	return func(o *Orchestrator) { o.subTools = m }
}

// WithTracer enables span tracing (see observer.NewTracer).
func WithTracer(t Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithTaskTracer enables persisted task logging.
func WithTaskTracer(t *TaskTracer) Option {
	return func(o *Orchestrator) { o.taskLog = t }
}

// WithLogger sets the structured logger. Without it, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator. client drives the main agent; tools is the
// main agent's registry (nil when the main agent works purely through
// sub-agents).
func New(cfg *Config, client LLMClient, tools ToolRegistry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:                cfg,
		client:             client,
		tools:              tools,
		summaryRetryDelay:  60 * time.Second,
		toolRetryBaseDelay: 5 * time.Second,
		toolCallTimeout:    600 * time.Second,
		sleep:              sleepCtx,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = nopLogger
	}
	if o.subClient == nil {
		o.subClient = o.client
	}
	return o
}

// Events returns the workflow event stream. Call it before Run; without a
// subscriber, event emission is a no-op. The stream ends with a nil sentinel
// followed by channel closure.
func (o *Orchestrator) Events() <-chan *Event {
	if o.emitter == nil {
		o.emitter = NewEmitter(o.cfg.EventBuffer)
	}
	return o.emitter.Events()
}

// Run executes one task to completion. It always returns a summary string
// and a best-effort boxed answer; err is non-nil only for infrastructure
// failures (cancelled context, unresolvable prompt class).
func (o *Orchestrator) Run(ctx context.Context, task Task) (string, string, error) {
	if task.ID == "" {
		task.ID = NewID()
	}
	if o.tracer != nil {
		var span Span
		ctx, span = o.tracer.Start(ctx, "orchestrator.run", StringAttr("task_id", task.ID))
		defer span.End()
	}
	defer o.emitter.Close(ctx)

	o.taskLog.SetGroundTruth(task.GroundTruth)
	o.taskLog.LogStep("task_start", "task accepted", "info")

	desc := ProcessInput(task.Description, task.FileName)
	if o.cfg.MainAgent.ChineseContext {
		desc += "\n\n" + chineseGuidance
	}
	if o.cfg.MainAgent.InputProcess.HintGeneration && o.helper != nil {
		if hints, err := o.generateHints(ctx, desc); err != nil {
			o.logger.Warn("hint generation failed", "task_id", task.ID, "error", err)
			o.taskLog.LogStep("hint_generation", err.Error(), "warning")
		} else if hints != "" {
			desc += "\n\nBelow are hints that may help you solve the task:\n" + hints + "\n"
			o.taskLog.LogStep("hint_generation", "hints appended", "success")
		}
	}

	o.emitter.startWorkflow(ctx, task.ID, desc)

	prompt, err := NewPromptProvider(o.cfg.MainAgent.PromptClass)
	if err != nil {
		o.taskLog.SetError(err.Error())
		o.taskLog.Finish(TaskStatusFailed)
		o.emitter.endWorkflow(ctx, task.ID, "")
		return "", "", err
	}

	var defs []ServerDefinition
	if o.tools != nil {
		servers, derr := o.tools.AllDefinitions(ctx)
		if derr != nil {
			o.logger.Warn("tool definition listing failed", "error", derr)
			o.emitter.showError(ctx, mainAgentName, "tool listing failed: "+derr.Error())
		}
		defs = servers
	}
	defs = append(defs, o.subAgentServerDefs()...)

	s := &agentSession{
		kind:           sessionMain,
		name:           mainAgentName,
		agentType:      o.cfg.MainAgent.PromptClass,
		systemPrompt:   prompt.SystemPrompt(defs, o.promptOptions()),
		toolDefs:       defs,
		history:        []Message{UserMessage(desc)},
		task:           desc,
		maxTurns:       o.cfg.MainAgent.MaxTurns,
		maxCalls:       o.cfg.MainAgent.MaxToolCallsPerTurn,
		keepToolResult: o.cfg.MainAgent.KeepToolResult,
		client:         o.client,
		registry:       o.tools,
		prompt:         prompt,
	}
	o.saveHistory(s)

	agentID := o.emitter.startAgent(ctx, mainAgentName)
	turns := o.runAgentLoop(ctx, s)
	o.emitter.endAgent(ctx, mainAgentName, agentID)
	o.taskLog.LogStep("main_agent", "loop finished", "info")

	reporterID := o.emitter.startAgent(ctx, reporterName)
	final := o.summaryWithRetry(ctx, s)
	o.emitter.endAgent(ctx, reporterName, reporterID)

	boxedSource := final
	if o.cfg.MainAgent.OutputProcess.FinalAnswerExtraction && o.helper != nil && final != summaryFatal {
		if extracted, xerr := o.extractFinalAnswer(ctx, desc, final); xerr != nil {
			o.logger.Warn("final answer extraction failed", "task_id", task.ID, "error", xerr)
			o.taskLog.LogStep("answer_extraction", xerr.Error(), "warning")
		} else if extracted != "" {
			s.history = append(s.history, AssistantMessage("LLM extracted final answer:\n"+extracted))
			o.saveHistory(s)
			boxedSource = extracted
		}
	}

	summary, boxed := FormatFinalSummary(final)
	if boxedSource != final {
		if b := ExtractBoxed(boxedSource); b != "" {
			boxed = b
		}
	}

	o.emitter.usageInfo(ctx, mainAgentName, UsageSceneMainAgentEnd, o.client.Usage(), map[string]any{"turns": turns})
	if o.subClient != nil && o.subClient != o.client {
		o.emitter.usageInfo(ctx, "sub_agent", UsageSceneSubAgentEnd, o.subClient.Usage(), nil)
	}
	o.emitter.endWorkflow(ctx, task.ID, summary)

	o.taskLog.SetFinalAnswer(boxed)
	o.taskLog.SetPerformance(o.performanceSummary(turns))
	status := TaskStatusCompleted
	if final == summaryFatal {
		o.taskLog.SetError(summaryFatal)
		status = TaskStatusFailed
	}
	o.taskLog.Finish(status)

	return summary, boxed, ctx.Err()
}

func (o *Orchestrator) promptOptions() PromptOptions {
	return PromptOptions{
		ChineseContext: o.cfg.MainAgent.ChineseContext,
		Date:           o.now(),
	}
}

func (o *Orchestrator) performanceSummary(turns int) map[string]any {
	main := o.client.Usage()
	perf := map[string]any{
		"main_agent_turns": turns,
		"main_agent_usage": main,
	}
	if o.subClient != nil && o.subClient != o.client {
		perf["sub_agent_usage"] = o.subClient.Usage()
	}
	return perf
}

// saveHistory snapshots the session conversation into the task log.
func (o *Orchestrator) saveHistory(s *agentSession) {
	if o.taskLog == nil {
		return
	}
	if s.kind == sessionMain {
		o.taskLog.SetMainHistory(s.systemPrompt, s.history)
	} else {
		o.taskLog.SetSubSessionHistory(s.subSessionID, s.systemPrompt, s.history)
	}
	o.taskLog.Save()
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
