package miroflow

import "context"

// ToolRegistry is the MCP-style tool server collection one agent can reach.
// Implementations own transport, per-tool timeouts below the engine's hard
// bound, and result marshalling.
type ToolRegistry interface {
	// AllDefinitions lists every server and its tools, for embedding in the
	// agent's system prompt and native tool definitions.
	AllDefinitions(ctx context.Context) ([]ServerDefinition, error)
	// ExecuteToolCall runs one tool call. Tool-surface failures come back in
	// ToolResult.Error; a non-nil error means the transport itself failed
	// and the call may be retried.
	ExecuteToolCall(ctx context.Context, serverName, toolName string, args map[string]any) (ToolResult, error)
}
