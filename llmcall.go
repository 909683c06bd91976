package miroflow

import (
	"context"
	"errors"
	"os"
	"strings"
)

// llmOutcome is the tagged result of one LLM round. Exactly one of the
// failure shapes holds: contextLimit, or empty text with breakLoop set.
type llmOutcome struct {
	text         string
	breakLoop    bool
	calls        *ParsedCalls
	contextLimit bool
}

// Purposes of an LLM round. The main agent's summary round is the only one
// whose deltas stream as message events; every other round streams through
// the show_text tool_call channel.
const (
	llmPurposeTurn    = "turn"
	llmPurposeSummary = "summary"
)

// callLLM performs one LLM round for a session: message-id annotation,
// pre/post history snapshots, the streaming call through a fresh token
// interceptor, response processing, and tool-call extraction. Every call is
// bracketed by start_of_llm / end_of_llm events.
func (o *Orchestrator) callLLM(ctx context.Context, s *agentSession, purpose string) llmOutcome {
	if o.cfg.MainAgent.AddMessageID {
		s.history = AnnotateMessageIDs(s.history)
	}
	o.saveHistory(s)

	var span Span
	callCtx := ctx
	if o.tracer != nil {
		callCtx, span = o.tracer.Start(ctx, "agent.llm_call",
			StringAttr("agent", s.name),
			StringAttr("purpose", purpose),
			IntAttr("step", s.turn))
		defer span.End()
	}

	// The main agent's summary runs under the reporter: its LLM events carry
	// the reporter name and its deltas go out as message events. All other
	// rounds stream intermediate text as show_text tool_call events.
	finalReport := purpose == llmPurposeSummary && s.kind == sessionMain
	eventName := s.name
	if finalReport {
		eventName = reporterName
	}

	o.emitter.startLLM(ctx, eventName)
	defer o.emitter.endLLM(ctx, eventName)

	interceptor := NewTokenInterceptor()
	messageID := NewID()
	stream := func(delta string, isLast bool) bool {
		out, ok := interceptor.Process(delta, isLast)
		if !ok {
			return false
		}
		if finalReport {
			o.emitter.message(ctx, messageID, out)
		} else {
			o.emitter.showText(ctx, messageID, out)
		}
		return true
	}

	resp, err := s.client.CreateMessage(callCtx, CreateMessageRequest{
		SystemPrompt:   s.systemPrompt,
		Messages:       s.history,
		Tools:          s.toolDefs,
		KeepToolResult: s.keepToolResult,
		Step:           s.turn,
		AgentType:      s.agentType,
		OnStream:       stream,
	})
	switch {
	case err == nil:
	case IsContextLimit(err):
		o.logger.Warn("context limit reached", "agent", s.name, "step", s.turn, "purpose", purpose)
		if span != nil {
			span.SetAttr(BoolAttr("context_limit", true))
		}
		return llmOutcome{breakLoop: true, contextLimit: true}
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		o.logger.Error("llm call timed out", "agent", s.name, "step", s.turn, "error", err)
		o.emitter.showError(ctx, eventName, "LLM call timed out: "+err.Error())
		if span != nil {
			span.Error(err)
		}
		return llmOutcome{breakLoop: true}
	default:
		o.logger.Error("llm call failed", "agent", s.name, "step", s.turn, "error", err)
		o.emitter.showError(ctx, eventName, "LLM call failed: "+err.Error())
		if span != nil {
			span.Error(err)
		}
		return llmOutcome{breakLoop: true}
	}
	if resp == nil {
		return llmOutcome{breakLoop: true}
	}

	history, text, shouldBreak := s.client.ProcessResponse(resp, s.history, s.agentType)
	s.history = history
	o.saveHistory(s)

	if strings.TrimSpace(text) == "" {
		o.logger.Warn("empty assistant response", "agent", s.name, "step", s.turn, "purpose", purpose)
		return llmOutcome{breakLoop: true}
	}

	calls := ParseToolCalls(resp)
	return llmOutcome{text: text, breakLoop: shouldBreak, calls: &calls}
}
