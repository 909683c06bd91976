package miroflow

import (
	"fmt"
	"strings"
)

// Reference implementations of the history-shaping pieces of the LLMClient
// contract. Clients with provider-specific message formats can reimplement
// them, but the merge text and annotation format must stay stable: tests and
// downstream log tooling key on them.

// MergeToolResults builds the single user-message text that carries one
// turn's tool results. With at most one result the text passes through
// unwrapped; otherwise a header states how many valid calls were processed
// (or that the per-turn cap truncated the list) followed by one section per
// result, in dispatch order.
func MergeToolResults(results []CallResult, exceeded bool) string {
	if len(results) == 0 {
		return ""
	}
	if len(results) == 1 {
		return results[0].Text
	}
	valid := 0
	for _, r := range results {
		if !r.Failed {
			valid++
		}
	}
	var header string
	if exceeded {
		header = fmt.Sprintf("You made too many tool calls. I can only afford to process %d valid tool calls in this turn.", valid)
	} else {
		header = fmt.Sprintf("I have processed %d valid tool calls in this turn.", valid)
	}
	parts := []string{header}
	vi, fi := 0, 0
	for _, r := range results {
		if r.Failed {
			fi++
			parts = append(parts, fmt.Sprintf("Failed tool call %d result:\n%s", fi, r.Text))
		} else {
			vi++
			parts = append(parts, fmt.Sprintf("Valid tool call %d result:\n%s", vi, r.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}

// AppendToolResults is the reference UpdateHistory: the merged text becomes
// one user message flagged as a tool-result block.
func AppendToolResults(history []Message, results []CallResult, exceeded bool) []Message {
	return append(history, ToolResultsMessage(MergeToolResults(results, exceeded)))
}

const messageIDPrefix = "[msg_"

// AnnotateMessageIDs prefixes each unlabelled user message with an opaque
// [msg_<8hex>] marker. The marker varies per conversation, which defeats
// provider prompt-cache reuse across unrelated tasks. Already labelled
// messages are left alone, so the operation is idempotent.
func AnnotateMessageIDs(history []Message) []Message {
	out := make([]Message, len(history))
	copy(out, history)
	for i := range out {
		if out[i].Role != "user" || strings.HasPrefix(out[i].Content, messageIDPrefix) {
			continue
		}
		out[i].Content = messageIDPrefix + shortID() + "] " + out[i].Content
	}
	return out
}

// toolResultOmittedMarker replaces windowed-out tool results so the model
// still sees that a tool ran there.
const toolResultOmittedMarker = "[Tool result omitted to save context]"

// PruneToolResults windows history to the last keep tool-result blocks,
// replacing older ones with an omission marker. keep < 0 keeps everything.
func PruneToolResults(history []Message, keep int) []Message {
	if keep < 0 {
		return history
	}
	total := 0
	for _, m := range history {
		if m.ToolResultBlock {
			total++
		}
	}
	if total <= keep {
		return history
	}
	out := make([]Message, len(history))
	copy(out, history)
	drop := total - keep
	for i := range out {
		if drop == 0 {
			break
		}
		if out[i].ToolResultBlock {
			out[i].Content = toolResultOmittedMarker
			drop--
		}
	}
	return out
}

// MergeSummaryPromptText is the reference MergeSummaryPrompt: when history
// ends with a user message, its text becomes leading context of the summary
// prompt and the message is dropped, so the request never carries two
// consecutive user turns.
func MergeSummaryPromptText(history []Message, prompt string) ([]Message, string) {
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		merged := history[n-1].Content + "\n\n" + prompt
		return history[:n-1], merged
	}
	return history, prompt
}
