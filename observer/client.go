package observer

import (
	"context"
	"time"

	miroflow "github.com/miromindai/miroflow"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instrumentedClient wraps an LLMClient with OTEL traces and metrics.
type instrumentedClient struct {
	inner miroflow.LLMClient
	inst  *Instruments
}

// WrapClient returns an LLMClient that records a span, a request count, a
// duration sample, and token usage deltas for every CreateMessage call.
// History-shaping methods pass through untouched.
func WrapClient(c miroflow.LLMClient, inst *Instruments) miroflow.LLMClient {
	return &instrumentedClient{inner: c, inst: inst}
}

func (w *instrumentedClient) CreateMessage(ctx context.Context, req miroflow.CreateMessageRequest) (*miroflow.Response, error) {
	ctx, span := w.inst.Tracer.Start(ctx, "llm.create_message",
		trace.WithAttributes(
			AttrAgentType.String(req.AgentType),
			AttrLLMStep.Int(req.Step),
		))
	defer span.End()

	before := w.inner.Usage()
	start := time.Now()
	resp, err := w.inner.CreateMessage(ctx, req)
	elapsed := float64(time.Since(start).Milliseconds())

	outcome := "ok"
	switch {
	case miroflow.IsContextLimit(err):
		outcome = "context_limit"
		w.inst.ContextLimitHits.Add(ctx, 1, metric.WithAttributes(AttrAgentType.String(req.AgentType)))
		span.SetAttributes(AttrContextLimit.Bool(true))
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(AttrLLMOutcome.String(outcome))

	attrs := metric.WithAttributes(AttrAgentType.String(req.AgentType), AttrLLMOutcome.String(outcome))
	w.inst.LLMRequests.Add(ctx, 1, attrs)
	w.inst.LLMDuration.Record(ctx, elapsed, attrs)

	after := w.inner.Usage()
	w.recordTokens(ctx, req.AgentType, "input", after.InputTokens-before.InputTokens)
	w.recordTokens(ctx, req.AgentType, "cached", after.CachedTokens-before.CachedTokens)
	w.recordTokens(ctx, req.AgentType, "output", after.OutputTokens-before.OutputTokens)
	w.recordTokens(ctx, req.AgentType, "reasoning", after.ReasoningTokens-before.ReasoningTokens)

	return resp, err
}

func (w *instrumentedClient) recordTokens(ctx context.Context, agentType, kind string, n int) {
	if n <= 0 {
		return
	}
	w.inst.TokenUsage.Add(ctx, int64(n), metric.WithAttributes(
		AttrAgentType.String(agentType),
		AttrTokenKind.String(kind),
	))
}

func (w *instrumentedClient) ProcessResponse(resp *miroflow.Response, history []miroflow.Message, agentType string) ([]miroflow.Message, string, bool) {
	return w.inner.ProcessResponse(resp, history, agentType)
}

func (w *instrumentedClient) UpdateHistory(history []miroflow.Message, results []miroflow.CallResult, exceeded bool) []miroflow.Message {
	return w.inner.UpdateHistory(history, results, exceeded)
}

func (w *instrumentedClient) MergeSummaryPrompt(history []miroflow.Message, prompt string) ([]miroflow.Message, string) {
	return w.inner.MergeSummaryPrompt(history, prompt)
}

func (w *instrumentedClient) Usage() miroflow.Usage {
	return w.inner.Usage()
}

// instrumentedRegistry wraps a ToolRegistry with OTEL traces and metrics.
type instrumentedRegistry struct {
	inner miroflow.ToolRegistry
	inst  *Instruments
}

// WrapRegistry returns a ToolRegistry that records a span, an execution
// count, and a duration sample per tool call.
func WrapRegistry(r miroflow.ToolRegistry, inst *Instruments) miroflow.ToolRegistry {
	return &instrumentedRegistry{inner: r, inst: inst}
}

func (w *instrumentedRegistry) AllDefinitions(ctx context.Context) ([]miroflow.ServerDefinition, error) {
	return w.inner.AllDefinitions(ctx)
}

func (w *instrumentedRegistry) ExecuteToolCall(ctx context.Context, serverName, toolName string, args map[string]any) (miroflow.ToolResult, error) {
	ctx, span := w.inst.Tracer.Start(ctx, "tool.execute",
		trace.WithAttributes(
			AttrToolServer.String(serverName),
			AttrToolName.String(toolName),
		))
	defer span.End()

	start := time.Now()
	res, err := w.inner.ExecuteToolCall(ctx, serverName, toolName, args)
	elapsed := float64(time.Since(start).Milliseconds())

	status := "ok"
	switch {
	case err != nil:
		status = "transport_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case res.Error != "":
		status = "tool_error"
		span.SetAttributes(attribute.String("tool.error", res.Error))
	}
	span.SetAttributes(AttrToolStatus.String(status))

	attrs := metric.WithAttributes(
		AttrToolServer.String(serverName),
		AttrToolName.String(toolName),
		AttrToolStatus.String(status),
	)
	w.inst.ToolExecutions.Add(ctx, 1, attrs)
	w.inst.ToolDuration.Record(ctx, elapsed, attrs)

	return res, err
}

// compile-time checks
var (
	_ miroflow.LLMClient    = (*instrumentedClient)(nil)
	_ miroflow.ToolRegistry = (*instrumentedRegistry)(nil)
)
