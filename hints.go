package miroflow

import (
	"context"
	"strings"
)

const hintSystemPrompt = `You are a research planning assistant. Given a task, produce a short list of concrete hints that would help an autonomous agent solve it: likely information sources, pitfalls in the phrasing, units or formats the answer must take, and sensible first steps. Output only the hints, as a plain list. Never attempt to answer the task itself.`

const extractSystemPrompt = `You extract final answers from research reports. Given a task and the report written for it, output only the exact final answer the report supports, formatted as \boxed{...} with no commentary. Follow any answer-format requirements stated in the task (units, rounding, list separators). If the report contains no usable answer, output \boxed{} empty.`

// generateHints asks the helper client for a hint block to append to the
// initial task message. Failures are the caller's to tolerate; hints are
// never load-bearing.
func (o *Orchestrator) generateHints(ctx context.Context, task string) (string, error) {
	resp, err := o.helper.CreateMessage(ctx, CreateMessageRequest{
		SystemPrompt: hintSystemPrompt,
		Messages:     []Message{UserMessage("Task:\n" + task)},
		AgentType:    "hint",
	})
	if err != nil || resp == nil {
		return "", err
	}
	_, text, _ := o.helper.ProcessResponse(resp, nil, "hint")
	return strings.TrimSpace(text), nil
}

// extractFinalAnswer runs the helper client over the finished summary to pin
// down a precisely formatted boxed answer.
func (o *Orchestrator) extractFinalAnswer(ctx context.Context, task, summary string) (string, error) {
	resp, err := o.helper.CreateMessage(ctx, CreateMessageRequest{
		SystemPrompt: extractSystemPrompt,
		Messages:     []Message{UserMessage("Task:\n" + task + "\n\nReport:\n" + summary)},
		AgentType:    "extract",
	})
	if err != nil || resp == nil {
		return "", err
	}
	_, text, _ := o.helper.ProcessResponse(resp, nil, "extract")
	return strings.TrimSpace(text), nil
}
