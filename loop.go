package miroflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// Session kinds and well-known agent names in the event stream.
const (
	sessionMain = "main"
	sessionSub  = "sub"

	mainAgentName = "main_agent"
	reporterName  = "reporter"
)

// subAgentPrefix marks pseudo-servers that route to nested agent sessions
// instead of the tool registry.
const subAgentPrefix = "agent-"

// agentSession is the mutable state of one agent loop (main or sub). It is
// owned exclusively by the loop that runs it; sub-sessions never see their
// parent's history.
type agentSession struct {
	kind         string
	name         string
	agentType    string
	systemPrompt string
	toolDefs     []ServerDefinition
	history      []Message
	task         string

	turn           int
	maxTurns       int
	maxCalls       int
	keepToolResult int
	taskFailed     bool

	client   LLMClient
	registry ToolRegistry
	prompt   PromptProvider

	// subSessionID keys the tracer snapshot for sub-sessions.
	subSessionID string
}

// rethinkResultText is the synthetic tool result injected for malformed
// tool-call blocks.
func rethinkResultText(reason string) string {
	return fmt.Sprintf("Your tool call format was incorrect, and the tool invocation failed, error_message: %s; please review the tool call format carefully and try again.", reason)
}

// malformedCallID marks synthetic results that answer no real call.
const malformedCallID = "FAILED"

// toolRetryAttempts bounds transport-level retries per tool call.
const toolRetryAttempts = 5

// runAgentLoop drives one session until the model stops calling tools, a
// failure forces the summary phase, or the turn budget runs out. It returns
// the number of turns consumed. Errors never escape: every failure becomes a
// state transition toward the summary.
func (o *Orchestrator) runAgentLoop(ctx context.Context, s *agentSession) int {
	maxTurns := s.maxTurns
	if maxTurns < 0 {
		maxTurns = math.MaxInt
	}

	completed := false
	for s.turn < maxTurns {
		if ctx.Err() != nil {
			s.taskFailed = true
			completed = true
			break
		}
		s.turn++

		turnCtx := ctx
		var turnSpan Span
		if o.tracer != nil {
			turnCtx, turnSpan = o.tracer.Start(ctx, "agent.turn",
				StringAttr("agent", s.name),
				IntAttr("turn", s.turn))
		}

		out := o.callLLM(turnCtx, s, llmPurposeTurn)
		if out.contextLimit || out.text == "" {
			s.taskFailed = true
			completed = true
			if turnSpan != nil {
				turnSpan.End()
			}
			break
		}
		if out.breakLoop || out.calls == nil || out.calls.Empty() {
			completed = true
			if turnSpan != nil {
				turnSpan.End()
			}
			break
		}

		exceeded := len(out.calls.Valid) > s.maxCalls
		selected := out.calls.Valid
		if exceeded {
			selected = selected[:s.maxCalls]
			o.logger.Warn("tool call cap exceeded",
				"agent", s.name,
				"turn", s.turn,
				"requested", len(out.calls.Valid),
				"cap", s.maxCalls)
		}
		if turnSpan != nil {
			turnSpan.SetAttr(IntAttr("tool_calls", len(selected)), BoolAttr("exceeded", exceeded))
		}

		// Dispatch in list order; sub-agents run synchronously so the
		// per-turn cap stays deterministic.
		results := make([]CallResult, 0, len(selected)+1)
		for _, call := range selected {
			var res ToolResult
			if strings.HasPrefix(call.ServerName, subAgentPrefix) {
				res = ToolResult{
					ServerName: call.ServerName,
					ToolName:   call.ToolName,
					Result:     o.runSubAgent(turnCtx, call),
				}
			} else {
				res = o.dispatchToolCall(turnCtx, s, call)
			}
			results = append(results, CallResult{CallID: call.CallID, Text: FormatToolResultText(res)})
		}
		if len(out.calls.Malformed) > 0 {
			results = append(results, CallResult{
				CallID: malformedCallID,
				Text:   rethinkResultText(out.calls.Malformed[0].Reason),
				Failed: true,
			})
		}

		s.history = s.client.UpdateHistory(s.history, results, exceeded)
		o.saveHistory(s)
		if turnSpan != nil {
			turnSpan.End()
		}
	}

	if !completed {
		s.taskFailed = true
		o.logger.Warn("max turns reached", "agent", s.name, "turns", s.turn)
	}
	return s.turn
}

// dispatchToolCall executes one non-agent tool call: restricted-host policy,
// hard timeout, transport retries, scrape truncation, and the tool_call /
// usage_info event pair.
func (o *Orchestrator) dispatchToolCall(ctx context.Context, s *agentSession, call ToolCall) ToolResult {
	if host := o.restrictedHost(call.Arguments); host != "" {
		return ToolResult{
			ServerName: call.ServerName,
			ToolName:   call.ToolName,
			Error:      fmt.Sprintf("access to host %q is restricted for this task; do not request this URL again", host),
		}
	}

	callID := NewID()
	args, _ := json.Marshal(call.Arguments)
	o.emitter.toolCall(ctx, callID, call.ToolName, map[string]any{
		"server_name": call.ServerName,
		"arguments":   json.RawMessage(args),
	})

	var span Span
	callCtx := ctx
	if o.tracer != nil {
		callCtx, span = o.tracer.Start(ctx, "agent.tool_call",
			StringAttr("server", call.ServerName),
			StringAttr("tool", call.ToolName))
	}

	start := time.Now()
	res, err := o.executeWithRetry(callCtx, s.registry, call)
	duration := time.Since(start)
	if err != nil {
		res = ToolResult{ServerName: call.ServerName, ToolName: call.ToolName, Error: err.Error()}
	}
	if res.ServerName == "" {
		res.ServerName, res.ToolName = call.ServerName, call.ToolName
	}
	if call.ToolName == "scrape" && res.Error == "" {
		res.Result = TruncateScrapeResult(res.Result, o.cfg.ScrapeMaxLength)
	}
	res.DurationMs = duration.Milliseconds()
	res.CallTime = start.UTC().Format(time.RFC3339)

	if span != nil {
		span.SetAttr(BoolAttr("failed", res.Error != ""), Float64Attr("duration_ms", float64(duration.Milliseconds())))
		if res.Error != "" {
			span.Error(errors.New(res.Error))
		}
		span.End()
	}

	o.emitter.toolCall(ctx, callID, call.ToolName, map[string]any{
		"server_name": call.ServerName,
		"result":      FormatToolResultText(res),
		"duration_ms": res.DurationMs,
	})
	o.emitter.usageInfo(ctx, s.name, UsageSceneToolCall, s.client.Usage(), map[string]any{"tool_name": call.ToolName})
	return res
}

// executeWithRetry runs a registry call under the hard timeout, retrying
// transport errors with 5·2^n backoff. Timeouts and cancellations are not
// retried; a 600 s tool call that timed out will time out again.
func (o *Orchestrator) executeWithRetry(ctx context.Context, reg ToolRegistry, call ToolCall) (ToolResult, error) {
	if reg == nil {
		return ToolResult{}, errors.New("no tool registry configured for this session")
	}
	var lastErr error
	delay := o.toolRetryBaseDelay
	for attempt := 0; attempt < toolRetryAttempts; attempt++ {
		if attempt > 0 {
			o.logger.Warn("retrying tool call",
				"server", call.ServerName,
				"tool", call.ToolName,
				"attempt", attempt+1,
				"delay", delay)
			if err := o.sleep(ctx, delay); err != nil {
				return ToolResult{}, lastErr
			}
			delay *= 2
		}
		res, err := runWithTimeout(ctx, o.toolCallTimeout, func(tctx context.Context) (ToolResult, error) {
			return reg.ExecuteToolCall(tctx, call.ServerName, call.ToolName, call.Arguments)
		})
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ToolResult{}, lastErr
		}
	}
	return ToolResult{}, lastErr
}

// restrictedHost returns the matching restricted host when the call targets
// one via a "url" argument, or "" when the call is allowed.
func (o *Orchestrator) restrictedHost(args map[string]any) string {
	if len(o.cfg.RestrictedHosts) == 0 {
		return ""
	}
	raw, ok := args["url"].(string)
	if !ok || raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, r := range o.cfg.RestrictedHosts {
		r = strings.ToLower(r)
		if host == r || strings.HasSuffix(host, "."+r) {
			return host
		}
	}
	return ""
}
