package miroflow

import "context"

// StreamFunc receives incremental text from a streaming LLM response.
// isLast marks the final chunk. The return value reports whether the chunk
// was forwarded; false means the interceptor withheld it.
type StreamFunc func(delta string, isLast bool) bool

// CreateMessageRequest carries everything an LLMClient needs for one call.
type CreateMessageRequest struct {
	SystemPrompt string
	Messages     []Message
	// Tools is the server/tool listing for providers that take native tool
	// definitions. Clients that drive tools purely through the system prompt
	// may ignore it.
	Tools []ServerDefinition
	// KeepToolResult asks the client to window history to the last N
	// tool-result blocks before sending. Negative keeps everything.
	KeepToolResult int
	// Step is the 1-based turn number within the current agent session.
	Step int
	// AgentType is the prompt class of the calling session ("main",
	// "worker", ...). Clients may use it to vary sampling parameters.
	AgentType string
	// OnStream, when non-nil, receives text deltas as they arrive.
	OnStream StreamFunc
}

// NativeToolCall is a structured tool invocation returned by providers with
// native function calling. Name joins server and tool with a hyphen;
// Arguments is the raw JSON argument string.
type NativeToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OutputItem is one entry of a response-API style output list.
// Items with Type "function_call" carry a tool invocation.
type OutputItem struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

// Response is a provider response in one of three shapes: plain text
// (possibly containing XML tool blocks), text plus native tool calls, or a
// response-API output-item list.
type Response struct {
	Text        string
	NativeCalls []NativeToolCall
	OutputItems []OutputItem
}

// LLMClient adapts one LLM provider to the orchestration engine. The engine
// calls it but never constructs histories behind its back: all
// provider-specific history shaping goes through the client so different
// providers can keep their own message formats.
//
// The history helpers in this package (MergeToolResults, AnnotateMessageIDs,
// PruneToolResults, MergeSummaryPromptText) implement the reference
// behavior; most clients delegate to them.
type LLMClient interface {
	// CreateMessage performs one LLM call. A *ContextLimitError return
	// signals provider context overflow; other errors are transport or
	// provider failures.
	CreateMessage(ctx context.Context, req CreateMessageRequest) (*Response, error)

	// ProcessResponse appends the assistant response to history and returns
	// the updated history, the assistant text, and whether the session
	// should stop after this round.
	ProcessResponse(resp *Response, history []Message, agentType string) ([]Message, string, bool)

	// UpdateHistory appends a turn's tool results to history as a single
	// user message. exceeded marks turns where the per-turn call cap
	// truncated the dispatch list.
	UpdateHistory(history []Message, results []CallResult, exceeded bool) []Message

	// MergeSummaryPrompt folds a trailing user message (if any) into the
	// summary prompt so the final request never ends with two user turns.
	// Returns the possibly shortened history and the effective prompt.
	MergeSummaryPrompt(history []Message, prompt string) ([]Message, string)

	// Usage returns the tokens accumulated across all calls so far.
	Usage() Usage
}
