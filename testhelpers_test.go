package miroflow

import (
	"context"
	"sync"
	"time"
)

// clientStep is one scripted LLM round: either a response or an error.
type clientStep struct {
	resp *Response
	err  error
}

// scriptedClient is a test LLMClient that replays canned responses in order
// and delegates history shaping to the reference helpers.
type scriptedClient struct {
	mu       sync.Mutex
	steps    []clientStep
	idx      int
	usage    Usage
	requests []CreateMessageRequest
}

func (c *scriptedClient) CreateMessage(ctx context.Context, req CreateMessageRequest) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.idx >= len(c.steps) {
		return &Response{Text: "script exhausted"}, nil
	}
	step := c.steps[c.idx]
	c.idx++
	if step.err != nil {
		return nil, step.err
	}
	c.usage.Add(Usage{InputTokens: 10, OutputTokens: 5})
	if req.OnStream != nil && step.resp != nil && step.resp.Text != "" {
		req.OnStream(step.resp.Text, false)
		req.OnStream("", true)
	}
	return step.resp, nil
}

func (c *scriptedClient) ProcessResponse(resp *Response, history []Message, agentType string) ([]Message, string, bool) {
	if resp.Text != "" {
		history = append(history, AssistantMessage(resp.Text))
	}
	return history, resp.Text, false
}

func (c *scriptedClient) UpdateHistory(history []Message, results []CallResult, exceeded bool) []Message {
	return AppendToolResults(history, results, exceeded)
}

func (c *scriptedClient) MergeSummaryPrompt(history []Message, prompt string) ([]Message, string) {
	return MergeSummaryPromptText(history, prompt)
}

func (c *scriptedClient) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// lastRequest returns the most recent CreateMessage request.
func (c *scriptedClient) lastRequest() CreateMessageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

// scriptedRegistry is a test ToolRegistry with a pluggable execute function.
type scriptedRegistry struct {
	mu      sync.Mutex
	defs    []ServerDefinition
	calls   []ToolCall
	execute func(ctx context.Context, server, tool string, args map[string]any) (ToolResult, error)
}

func (r *scriptedRegistry) AllDefinitions(ctx context.Context) ([]ServerDefinition, error) {
	return r.defs, nil
}

func (r *scriptedRegistry) ExecuteToolCall(ctx context.Context, server, tool string, args map[string]any) (ToolResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, ToolCall{ServerName: server, ToolName: tool, Arguments: args})
	r.mu.Unlock()
	if r.execute != nil {
		return r.execute(ctx, server, tool, args)
	}
	return ToolResult{ServerName: server, ToolName: tool, Result: "ok"}, nil
}

func (r *scriptedRegistry) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// newTestOrchestrator builds an Orchestrator with all delays collapsed so
// retry paths run instantly.
func newTestOrchestrator(cfg *Config, client LLMClient, tools ToolRegistry, opts ...Option) *Orchestrator {
	o := New(cfg, client, tools, opts...)
	o.summaryRetryDelay = 0
	o.toolRetryBaseDelay = 0
	o.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return o
}

// drainEvents consumes an event stream in the background and returns a
// function that waits for the end-of-stream sentinel and hands back every
// event received before it.
func drainEvents(ch <-chan *Event) func() []Event {
	done := make(chan []Event, 1)
	go func() {
		var out []Event
		for ev := range ch {
			if ev == nil {
				continue
			}
			out = append(out, *ev)
		}
		done <- out
	}()
	return func() []Event { return <-done }
}

// eventsOfType filters a drained event slice by type.
func eventsOfType(events []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// mcpBlock renders a well-formed tool-call block for scripted responses.
func mcpBlock(server, tool, args string) string {
	return "<use_mcp_tool>\n<server_name>" + server + "</server_name>\n<tool_name>" + tool + "</tool_name>\n<arguments>\n" + args + "\n</arguments>\n</use_mcp_tool>"
}
