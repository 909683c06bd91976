// Package miroflow is a hierarchical agent orchestration engine for
// long-horizon LLM task execution in Go.
//
// It runs a main agent loop that repeatedly calls an LLM, parses tool
// invocations out of the response, dispatches them against MCP-style tool
// servers, and feeds the merged results back as conversation history. Tool
// servers whose name carries the "agent-" prefix are not real servers: calls
// to them spawn a nested sub-agent loop whose final summary becomes the tool
// result seen by the caller.
//
// # Quick Start
//
//	cfg := miroflow.DefaultConfig()
//	orc := miroflow.New(&cfg, client, tools,
//		miroflow.WithSubAgentTools(map[string]miroflow.ToolRegistry{
//			"agent-worker": workerTools,
//		}),
//	)
//
//	go func() {
//		for ev := range orc.Events() {
//			if ev == nil {
//				break // end-of-stream sentinel
//			}
//			render(ev)
//		}
//	}()
//
//	summary, boxed, err := orc.Run(ctx, miroflow.Task{ID: "t1", Description: task})
//
// # Core Interfaces
//
// The root package defines the contracts all components implement:
//
//   - [LLMClient] — provider adapter (message creation, history shaping, usage)
//   - [ToolRegistry] — MCP-style tool server collection (definitions, execution)
//   - [PromptProvider] — per-agent-class system and summary prompts
//   - [Tracer] — span creation for turns, LLM calls, and tool dispatch
//
// The observer package provides OTEL-backed implementations of the
// observability surfaces. See cmd/miroflow-trace for a task-log inspector.
package miroflow
