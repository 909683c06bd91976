package miroflow

import "encoding/json"

// --- Conversation types ---

// Message is a single entry in an agent's conversation history.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
	// ToolResultBlock marks user messages that carry merged tool results,
	// so keep-tool-result windowing can identify them later.
	ToolResultBlock bool `json:"tool_result_block,omitempty"`
}

// Usage accumulates token counts across the LLM calls of one client.
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	CachedTokens    int `json:"cached_tokens"`
	OutputTokens    int `json:"output_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Add accumulates u2 into u.
func (u *Usage) Add(u2 Usage) {
	u.InputTokens += u2.InputTokens
	u.CachedTokens += u2.CachedTokens
	u.OutputTokens += u2.OutputTokens
	u.ReasoningTokens += u2.ReasoningTokens
}

// --- Tool protocol types ---

// ToolDefinition describes one callable tool on a server.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"` // JSON Schema for the arguments
}

// ServerDefinition groups the tools exposed by one MCP-style server.
// Sub-agents appear as pseudo-servers whose Name carries the "agent-" prefix.
type ServerDefinition struct {
	Name  string           `json:"name"`
	Tools []ToolDefinition `json:"tools"`
}

// ToolCall is a successfully parsed tool invocation from an LLM response.
type ToolCall struct {
	ServerName string         `json:"server_name"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments"`
	// CallID is the provider-assigned id for native tool calls;
	// empty for calls parsed from XML blocks.
	CallID string `json:"call_id,omitempty"`
}

// MalformedCall records a tool-call block that could not be parsed.
type MalformedCall struct {
	Reason  string `json:"reason"`
	Content string `json:"content"`
}

// ParsedCalls is the outcome of extracting tool invocations from one LLM
// response: the calls that parsed, in response order, plus any blocks that
// were structurally broken.
type ParsedCalls struct {
	Valid     []ToolCall
	Malformed []MalformedCall
}

// Empty reports whether the response contained no tool invocations at all.
func (p ParsedCalls) Empty() bool {
	return len(p.Valid) == 0 && len(p.Malformed) == 0
}

// ToolResult is the outcome of executing one tool call. Exactly one of
// Result and Error is meaningful.
type ToolResult struct {
	ServerName string `json:"server_name"`
	ToolName   string `json:"tool_name"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	// DurationMs and CallTime record how long the call ran and when it
	// started (RFC 3339, UTC). Filled by the dispatcher; zero for results
	// that never reached a tool, such as policy refusals.
	DurationMs int64  `json:"duration_ms,omitempty"`
	CallTime   string `json:"call_time,omitempty"`
}

// CallResult pairs a formatted tool result with the call id it answers.
// Failed marks synthetic results injected for malformed calls.
type CallResult struct {
	CallID string `json:"call_id"`
	Text   string `json:"text"`
	Failed bool   `json:"failed,omitempty"`
}

// --- Message constructors ---

func UserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}

func SystemMessage(text string) Message {
	return Message{Role: "system", Content: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: "assistant", Content: text}
}

// ToolResultsMessage builds the user message that carries a turn's merged
// tool results back to the LLM.
func ToolResultsMessage(text string) Message {
	return Message{Role: "user", Content: text, ToolResultBlock: true}
}
