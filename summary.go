package miroflow

import "context"

// summaryFatal is the terminal answer when summary generation exhausts every
// retry and pruning step.
const summaryFatal = "[ERROR] Unable to generate final summary due to context limit or network issues. You should try again."

// summaryRetryAttempts bounds the inner network-retry loop per summary
// attempt. The outer loop is bounded by history length instead: every
// context-limit pass removes messages, so it terminates.
const summaryRetryAttempts = 5

// summaryWithRetry produces the session-ending summary. Transient failures
// retry in place; a context-limit failure prunes the most recent
// assistant/user exchange and rebuilds a shorter summary request, marking the
// task failed, until the history is too short to shrink further.
func (o *Orchestrator) summaryWithRetry(ctx context.Context, s *agentSession) string {
	for {
		prompt := s.prompt.SummaryPrompt(s.task, s.taskFailed, o.promptOptions())
		history, merged := s.client.MergeSummaryPrompt(s.history, prompt)
		s.history = append(history, UserMessage(merged))
		o.saveHistory(s)

		var out llmOutcome
		for attempt := 0; attempt < summaryRetryAttempts; attempt++ {
			if attempt > 0 {
				o.logger.Warn("retrying summary generation",
					"agent", s.name,
					"attempt", attempt+1,
					"delay", o.summaryRetryDelay)
				if err := o.sleep(ctx, o.summaryRetryDelay); err != nil {
					return summaryFatal
				}
			}
			out = o.callLLM(ctx, s, llmPurposeSummary)
			if out.text != "" || out.contextLimit {
				break
			}
			if ctx.Err() != nil {
				return summaryFatal
			}
		}

		if out.text != "" {
			return out.text
		}
		if !out.contextLimit {
			o.logger.Error("summary generation exhausted retries", "agent", s.name)
			return summaryFatal
		}

		// Context limit: shrink the conversation and try again with a
		// rebuilt prompt.
		s.taskFailed = true
		if n := len(s.history); n > 0 && s.history[n-1].Role == "user" {
			s.history = s.history[:n-1]
		}
		if n := len(s.history); n > 0 && s.history[n-1].Role == "assistant" {
			s.history = s.history[:n-1]
		}
		o.logger.Warn("summary hit context limit, pruning history",
			"agent", s.name,
			"remaining", len(s.history))
		if len(s.history) <= 2 {
			return summaryFatal
		}
	}
}
