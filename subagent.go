package miroflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// subtaskInstruction is appended to every delegated task description so the
// sub-agent's summary answers the subtask instead of trailing off.
const subtaskInstruction = "\n\nPlease provide the answer and detailed supporting information of the subtask given to you."

// executeSubtaskSchema is the argument schema of the pseudo-tool every
// sub-agent exposes.
var executeSubtaskSchema = json.RawMessage(`{"type":"object","properties":{"task":{"type":"string","description":"Complete, self-contained description of the subtask, including all context the agent needs."}},"required":["task"]}`)

// subAgentServerDefs builds pseudo-server definitions for the configured
// sub-agents, sorted by name for a stable prompt layout.
func (o *Orchestrator) subAgentServerDefs() []ServerDefinition {
	names := make([]string, 0, len(o.cfg.SubAgents))
	for name := range o.cfg.SubAgents {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]ServerDefinition, 0, len(names))
	for _, name := range names {
		display := strings.TrimPrefix(name, subAgentPrefix)
		defs = append(defs, ServerDefinition{
			Name: name,
			Tools: []ToolDefinition{{
				Name:        "execute_subtask",
				Description: fmt.Sprintf("Delegate a self-contained subtask to the %s agent and receive its final report as the result.", display),
				Schema:      executeSubtaskSchema,
			}},
		})
	}
	return defs
}

// runSubAgent executes one delegated subtask as a nested agent session and
// returns its final summary, which the caller wraps as the tool result. The
// nested start_of_agent / end_of_agent pair encloses all of the sub-agent's
// LLM and tool events.
func (o *Orchestrator) runSubAgent(ctx context.Context, call ToolCall) string {
	name := call.ServerName
	subCfg, ok := o.cfg.SubAgents[name]
	if !ok {
		o.logger.Warn("unconfigured sub-agent requested", "agent", name)
		return fmt.Sprintf("No sub-agent named %s is configured for this task.", name)
	}

	taskDesc, _ := call.Arguments["task"].(string)
	if taskDesc == "" {
		// Degenerate delegation: pass the raw arguments through so the
		// sub-agent at least sees what was asked.
		raw, _ := json.Marshal(call.Arguments)
		taskDesc = string(raw)
	}
	taskDesc += subtaskInstruction

	display := strings.TrimPrefix(name, subAgentPrefix)
	agentID := o.emitter.startAgent(ctx, display)
	defer o.emitter.endAgent(ctx, display, agentID)

	prompt, err := NewPromptProvider(subCfg.PromptClass)
	if err != nil {
		o.logger.Error("sub-agent prompt class unresolved", "agent", name, "error", err)
		return fmt.Sprintf("Sub agent %s could not be started: %v", name, err)
	}

	reg := o.subTools[name]
	var defs []ServerDefinition
	if reg != nil {
		if servers, derr := reg.AllDefinitions(ctx); derr != nil {
			o.logger.Warn("sub-agent tool listing failed", "agent", name, "error", derr)
		} else {
			defs = servers
		}
	}
	if !hasTools(defs) {
		o.logger.Warn("sub-agent session has no tool definitions", "agent", name)
	}

	var span Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "agent.sub_session",
			StringAttr("agent", name),
			StringAttr("prompt_class", subCfg.PromptClass))
		defer span.End()
	}

	s := &agentSession{
		kind:           sessionSub,
		name:           display,
		agentType:      subCfg.PromptClass,
		systemPrompt:   prompt.SystemPrompt(defs, o.promptOptions()),
		toolDefs:       defs,
		history:        []Message{UserMessage(taskDesc)},
		task:           taskDesc,
		maxTurns:       subCfg.MaxTurns,
		maxCalls:       subCfg.MaxToolCallsPerTurn,
		keepToolResult: subCfg.KeepToolResult,
		client:         o.subClient,
		registry:       reg,
		prompt:         prompt,
		subSessionID:   o.taskLog.StartSubSession(name),
	}
	o.saveHistory(s)

	o.runAgentLoop(ctx, s)
	summary := o.summaryWithRetry(ctx, s)
	if strings.TrimSpace(summary) == "" {
		summary = fmt.Sprintf("No final answer generated by sub agent %s.", name)
	}
	return summary
}
