package miroflow

import (
	"fmt"
	"strings"
	"time"
)

func init() {
	RegisterPromptClass("main", func() PromptProvider {
		return &agentPrompt{class: "main", objective: mainObjective, boxedAnswer: true}
	})
	RegisterPromptClass("worker", func() PromptProvider {
		return &agentPrompt{class: "worker", objective: workerObjective}
	})
	RegisterPromptClass("coding", func() PromptProvider {
		return &agentPrompt{class: "coding", objective: codingObjective}
	})
	RegisterPromptClass("reading", func() PromptProvider {
		return &agentPrompt{class: "reading", objective: readingObjective}
	})
	RegisterPromptClass("reasoning", func() PromptProvider {
		return &agentPrompt{class: "reasoning", objective: reasoningObjective}
	})
}

// agentPrompt is the shared prompt implementation: a per-class objective
// block wrapped with the common tool-use instructions and report format.
type agentPrompt struct {
	class     string
	objective string
	// boxedAnswer instructs the final report to end with a \boxed{} answer
	// (main agent only; sub-agents report free-form findings).
	boxedAnswer bool
}

const mainObjective = `You are a task-solving orchestrator. You decompose the user's task, delegate focused subtasks to the available worker agents, and combine their findings into a single answer.

Task strategy:
- Break the task into small, verifiable subtasks and delegate each to the most suitable agent tool.
- Cross-check facts from more than one source before committing to an answer.
- Prefer delegating browsing, reading, and coding work; keep your own turns for planning and synthesis.
- If a subtask result looks wrong or incomplete, re-delegate with a sharper task description instead of guessing.`

const workerObjective = `You are a diligent worker agent. You receive one focused subtask and must complete it with the tools available to you.

Task strategy:
- Work step by step and verify intermediate results before building on them.
- Report concrete findings with supporting evidence (quotes, URLs, computed values), not vague claims.
- If the subtask cannot be completed, say exactly what was attempted and what blocked it.`

const codingObjective = `You are a coding agent. You solve subtasks by writing and executing code in the sandbox.

Task strategy:
- Write small scripts, run them, and inspect real output instead of predicting results.
- Upload any task files to the sandbox before processing them there.
- When a computation produces the answer, state the exact value the code printed.`

const readingObjective = `You are a document-reading agent. You extract precise information from files and long documents.

Task strategy:
- Read the relevant sections fully before answering; never answer from the filename or title alone.
- Quote the exact passages that support your findings, with their locations.`

const reasoningObjective = `You are a reasoning agent. You solve logic, math, and puzzle subtasks by careful step-by-step derivation. You have no tools; rely on rigorous reasoning and show the full chain of steps that leads to your conclusion.`

// SystemPrompt renders the class objective plus the shared tool-use protocol
// and the listing of visible servers.
func (p *agentPrompt) SystemPrompt(servers []ServerDefinition, opts PromptOptions) string {
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}
	var b strings.Builder
	b.WriteString(p.objective)
	b.WriteString("\n\nToday's date: ")
	b.WriteString(date.Format("2006-01-02"))
	b.WriteString("\n\n")

	if hasTools(servers) {
		b.WriteString(mcpToolInstructions)
		b.WriteString("\n# Available Tools\n")
		b.WriteString(formatServerListing(servers))
		b.WriteString("\n")
		b.WriteString(toolUseGuidelines)
	} else {
		b.WriteString("You have no tools available for this session. Solve the task with reasoning alone.\n")
	}

	b.WriteString("\n" + communicationRules)
	if opts.ChineseContext {
		b.WriteString("\n" + chineseGuidance)
	}
	return b.String()
}

// SummaryPrompt renders the session-ending report instruction. The leading
// sentence distinguishes it from tool output so the model does not treat it
// as another result to process.
func (p *agentPrompt) SummaryPrompt(task string, taskFailed bool, opts PromptOptions) string {
	var b strings.Builder
	b.WriteString("This is a direct instruction to you (the assistant), not the result of a tool call.\n\n")
	if taskFailed {
		b.WriteString("**Important: You have either exhausted the context token limit or reached the maximum number of interaction turns, so the task is being force-stopped. Summarize honestly from what was actually gathered; if the task was not completed, give your best attempt based on partial results.**\n\n")
	}
	b.WriteString("We are now ending this session, and your conversation history will be deleted afterwards. Write a final report of everything relevant you found for the task below:\n\n---\n")
	b.WriteString(task)
	b.WriteString("\n---\n\nThe report must be self-contained: include every fact, value, and source needed to judge the answer, because nothing outside the report survives this session.")
	if p.boxedAnswer {
		b.WriteString(" End the report with your final answer in the form \\boxed{...}, containing only the answer itself with no extra commentary.")
	} else {
		b.WriteString(" State the answer to the subtask explicitly, followed by the detailed supporting information.")
	}
	if opts.ChineseContext {
		b.WriteString("\n\n" + chineseSummaryGuidance)
	}
	return b.String()
}

const mcpToolInstructions = `# Tool Use

You interact with tools through MCP servers. To call a tool, emit exactly one block in this format at the end of your message:

<use_mcp_tool>
<server_name>server name here</server_name>
<tool_name>tool name here</tool_name>
<arguments>
{
  "param": "value"
}
</arguments>
</use_mcp_tool>

The arguments element must contain a single valid JSON object matching the tool's input schema.
`

const toolUseGuidelines = `Tool-use guidelines:
- Call at most one tool per message and wait for its result before deciding the next step.
- Choose the tool whose schema matches the information you need; do not guess parameter names.
- Server names starting with "agent-" are worker agents: give them a complete, self-contained task description.
- Never fabricate tool results. If a tool fails, adjust the arguments or pick another tool.`

const communicationRules = `Communication rules:
- Be direct and factual; do not narrate your internal deliberation beyond what the task needs.
- When you have everything required for the final answer, reply without any tool call.`

const chineseGuidance = `Language guidance: the task is grounded in Chinese-language sources. Prefer Chinese search terms and Chinese-language pages when gathering information, and quote sources in their original language.`

const chineseSummaryGuidance = `If the task is in Chinese, write the report in Chinese. Keep quoted source text in its original language.`

func hasTools(servers []ServerDefinition) bool {
	for _, s := range servers {
		if len(s.Tools) > 0 {
			return true
		}
	}
	return false
}

// formatServerListing renders the per-server tool catalog embedded in system
// prompts.
func formatServerListing(servers []ServerDefinition) string {
	var b strings.Builder
	for _, s := range servers {
		fmt.Fprintf(&b, "\n## Server name: %s\n", s.Name)
		for _, t := range s.Tools {
			fmt.Fprintf(&b, "### Tool name: %s\n", t.Name)
			if t.Description != "" {
				fmt.Fprintf(&b, "Description: %s\n", t.Description)
			}
			if len(t.Schema) > 0 {
				fmt.Fprintf(&b, "Input JSON schema: %s\n", string(t.Schema))
			}
		}
	}
	return b.String()
}
