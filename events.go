package miroflow

import (
	"context"
	"sync"
)

// EventType identifies the kind of workflow event.
type EventType string

const (
	// EventStartOfWorkflow opens a task run.
	EventStartOfWorkflow EventType = "start_of_workflow"
	// EventEndOfWorkflow closes a task run with the final answer.
	EventEndOfWorkflow EventType = "end_of_workflow"
	// EventStartOfAgent opens a main or sub-agent session.
	EventStartOfAgent EventType = "start_of_agent"
	// EventEndOfAgent closes an agent session.
	EventEndOfAgent EventType = "end_of_agent"
	// EventStartOfLLM precedes every LLM call within an agent session.
	EventStartOfLLM EventType = "start_of_llm"
	// EventEndOfLLM follows every LLM call within an agent session.
	EventEndOfLLM EventType = "end_of_llm"
	// EventMessage carries streamed assistant text of the final report only.
	EventMessage EventType = "message"
	// EventToolCall carries tool invocation starts and results, plus in-turn
	// streamed deltas under the show_text tool name.
	EventToolCall EventType = "tool_call"
	// EventUsageInfo carries a token accounting snapshot.
	EventUsageInfo EventType = "usage_info"
	// EventShowError surfaces a non-fatal failure to observers.
	EventShowError EventType = "show_error"
)

// Usage scenes for EventUsageInfo payloads.
const (
	UsageSceneToolCall     = "tool_call"
	UsageSceneMainAgentEnd = "main_agent_end"
	UsageSceneSubAgentEnd  = "sub_agent_end"
)

// Event is one entry of the workflow event stream.
type Event struct {
	Type EventType      `json:"event"`
	Data map[string]any `json:"data"`
}

// Emitter publishes workflow events on a bounded channel. A nil *Emitter is
// valid and drops everything, so callers never branch on observer presence.
//
// When the buffer fills, emit blocks until the consumer catches up or the
// context is cancelled: slow observers apply backpressure, events are never
// dropped.
type Emitter struct {
	ch        chan *Event
	closeOnce sync.Once
}

// NewEmitter creates an emitter with the given channel buffer.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &Emitter{ch: make(chan *Event, buffer)}
}

const defaultEventBuffer = 64

// Events returns the receive side of the stream. A nil *Event on the channel
// is the end-of-stream sentinel; the channel is closed right after it.
func (e *Emitter) Events() <-chan *Event {
	if e == nil {
		return nil
	}
	return e.ch
}

// Emit publishes one event, blocking on a full buffer until the consumer
// drains or ctx is cancelled.
func (e *Emitter) Emit(ctx context.Context, typ EventType, data map[string]any) {
	if e == nil {
		return
	}
	select {
	case e.ch <- &Event{Type: typ, Data: data}:
	case <-ctx.Done():
	}
}

// Close sends the nil end-of-stream sentinel and closes the channel.
// Safe to call multiple times; only the first call has an effect.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		select {
		case e.ch <- nil:
		case <-ctx.Done():
		}
		close(e.ch)
	})
}

// --- typed emit helpers ---

func (e *Emitter) startWorkflow(ctx context.Context, workflowID, task string) {
	e.Emit(ctx, EventStartOfWorkflow, map[string]any{
		"workflow_id": workflowID,
		"input":       []map[string]any{{"role": "user", "content": task}},
	})
}

func (e *Emitter) endWorkflow(ctx context.Context, workflowID, finalAnswer string) {
	e.Emit(ctx, EventEndOfWorkflow, map[string]any{
		"workflow_id": workflowID,
		"messages":    []map[string]any{{"role": "assistant", "content": finalAnswer}},
	})
}

// startAgent opens an agent span and returns its id for the matching end.
func (e *Emitter) startAgent(ctx context.Context, name string) string {
	id := NewID()
	e.Emit(ctx, EventStartOfAgent, map[string]any{
		"agent_name": name,
		"agent_id":   id,
	})
	return id
}

func (e *Emitter) endAgent(ctx context.Context, name, id string) {
	e.Emit(ctx, EventEndOfAgent, map[string]any{
		"agent_name": name,
		"agent_id":   id,
	})
}

func (e *Emitter) startLLM(ctx context.Context, agentName string) {
	e.Emit(ctx, EventStartOfLLM, map[string]any{"agent_name": agentName})
}

func (e *Emitter) endLLM(ctx context.Context, agentName string) {
	e.Emit(ctx, EventEndOfLLM, map[string]any{"agent_name": agentName})
}

// message emits streamed assistant text. id groups deltas of one message.
func (e *Emitter) message(ctx context.Context, id, delta string) {
	e.Emit(ctx, EventMessage, map[string]any{
		"message_id": id,
		"delta":      map[string]any{"content": delta},
	})
}

// showTextTool is the tool name carrying in-turn streamed deltas on the
// tool_call channel.
const showTextTool = "show_text"

// showText streams intermediate assistant text as a show_text tool_call
// event. id groups the deltas of one LLM round.
func (e *Emitter) showText(ctx context.Context, id, delta string) {
	e.toolCall(ctx, id, showTextTool, map[string]any{"text": delta})
}

// toolCall emits a tool invocation event. id groups the start and result of
// one call.
func (e *Emitter) toolCall(ctx context.Context, id, toolName string, payload map[string]any) {
	data := map[string]any{
		"tool_call_id": id,
		"tool_name":    toolName,
	}
	for k, v := range payload {
		data[k] = v
	}
	e.Emit(ctx, EventToolCall, data)
}

func (e *Emitter) usageInfo(ctx context.Context, agentName, scene string, u Usage, extra map[string]any) {
	data := map[string]any{
		"agent_name": agentName,
		"scene":      scene,
		"usage": map[string]any{
			"input_tokens":     u.InputTokens,
			"cached_tokens":    u.CachedTokens,
			"output_tokens":    u.OutputTokens,
			"reasoning_tokens": u.ReasoningTokens,
		},
	}
	for k, v := range extra {
		data[k] = v
	}
	e.Emit(ctx, EventUsageInfo, data)
}

func (e *Emitter) showError(ctx context.Context, agentName, message string) {
	e.Emit(ctx, EventShowError, map[string]any{
		"agent_name": agentName,
		"error":      message,
	})
}
