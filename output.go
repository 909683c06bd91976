package miroflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// boxedRe allows one level of brace nesting inside \boxed{...} without
// catastrophic backtracking. boxedShallowRe is the fallback for content the
// primary pattern rejects.
var (
	boxedRe        = regexp.MustCompile(`(?s)\\boxed\{([^{}]*(?:\{[^{}]*\}[^{}]*)*)\}`)
	boxedShallowRe = regexp.MustCompile(`(?s)\\boxed\{([^}]+)\}`)
)

// noFinalAnswer is the boxed-answer sentinel for summaries without any
// \boxed{} content.
const noFinalAnswer = "No final answer generated."

// ExtractBoxed returns the content of the last \boxed{...} occurrence in
// text, or "" when there is none. One level of brace nesting is preserved.
func ExtractBoxed(text string) string {
	matches := boxedRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		matches = boxedShallowRe.FindAllStringSubmatch(text, -1)
	}
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}

// FormatFinalSummary derives the terminal (summary, boxed) pair from the
// final assistant text.
func FormatFinalSummary(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", noFinalAnswer
	}
	boxed := ExtractBoxed(text)
	if boxed == "" {
		return text, noFinalAnswer
	}
	return text, boxed
}

// maxToolResultLen caps individual tool result texts in history. Results past
// this point stop informing the model and only burn context.
const maxToolResultLen = 100_000

// FormatToolResultText renders one tool execution outcome as the text the
// model sees.
func FormatToolResultText(res ToolResult) string {
	if res.Error != "" {
		return fmt.Sprintf("Tool call to %s on %s failed. Error: %s", res.ToolName, res.ServerName, res.Error)
	}
	if strings.TrimSpace(res.Result) == "" {
		return fmt.Sprintf("Tool '%s' completed but returned empty text - this may be expected or indicate an issue", res.ToolName)
	}
	if len(res.Result) > maxToolResultLen {
		return res.Result[:maxToolResultLen] + "\n... [Result truncated]"
	}
	return res.Result
}

// TruncateScrapeResult bounds a scrape tool result to max characters. When
// the result is a JSON object with a "text" field, only that field is
// truncated and the object re-serialized; otherwise the raw string is cut.
func TruncateScrapeResult(result string, max int) string {
	if max <= 0 || len(result) <= max {
		return result
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(result), &obj); err == nil {
		if text, ok := obj["text"].(string); ok && len(text) > max {
			obj["text"] = text[:max]
			if out, err := json.Marshal(obj); err == nil {
				return string(out)
			}
		}
	}
	return result[:max]
}
