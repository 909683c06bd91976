package miroflow

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractBoxed(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`The answer is \boxed{42}.`, "42"},
		{`\boxed{first} then \boxed{second}`, "second"},
		{`\boxed{\frac{1}{2}}`, `\frac{1}{2}`},
		{`\boxed{  padded  }`, "padded"},
		{"no box here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractBoxed(tt.in); got != tt.want {
			t.Errorf("ExtractBoxed(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatFinalSummary(t *testing.T) {
	summary, boxed := FormatFinalSummary(`Report text. \boxed{Paris}`)
	if summary != `Report text. \boxed{Paris}` || boxed != "Paris" {
		t.Errorf("got %q, %q", summary, boxed)
	}

	summary, boxed = FormatFinalSummary("Report with no box.")
	if summary != "Report with no box." || boxed != noFinalAnswer {
		t.Errorf("got %q, %q; want sentinel boxed answer", summary, boxed)
	}

	summary, boxed = FormatFinalSummary("   ")
	if summary != "" || boxed != noFinalAnswer {
		t.Errorf("got %q, %q; want empty summary with sentinel", summary, boxed)
	}
}

func TestFormatToolResultTextError(t *testing.T) {
	got := FormatToolResultText(ToolResult{ServerName: "browser", ToolName: "scrape", Error: "connection refused"})
	want := "Tool call to scrape on browser failed. Error: connection refused"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatToolResultTextEmpty(t *testing.T) {
	got := FormatToolResultText(ToolResult{ToolName: "lookup", Result: "  "})
	want := "Tool 'lookup' completed but returned empty text - this may be expected or indicate an issue"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatToolResultTextTruncates(t *testing.T) {
	long := strings.Repeat("a", maxToolResultLen+50)
	got := FormatToolResultText(ToolResult{ToolName: "read", Result: long})
	if !strings.HasSuffix(got, "\n... [Result truncated]") {
		t.Error("missing truncation marker")
	}
	if len(got) != maxToolResultLen+len("\n... [Result truncated]") {
		t.Errorf("len = %d", len(got))
	}
}

func TestFormatToolResultTextPassthrough(t *testing.T) {
	if got := FormatToolResultText(ToolResult{ToolName: "read", Result: "short"}); got != "short" {
		t.Errorf("got %q, want passthrough", got)
	}
}

func TestTruncateScrapeResultJSON(t *testing.T) {
	long := strings.Repeat("x", 100)
	raw, _ := json.Marshal(map[string]any{"text": long, "url": "https://example.org"})
	got := TruncateScrapeResult(string(raw), 40)

	var obj map[string]any
	if err := json.Unmarshal([]byte(got), &obj); err != nil {
		t.Fatalf("result no longer JSON: %v", err)
	}
	if text, _ := obj["text"].(string); len(text) != 40 {
		t.Errorf("text length = %d, want 40", len(text))
	}
	if obj["url"] != "https://example.org" {
		t.Errorf("url = %v, want preserved", obj["url"])
	}
}

func TestTruncateScrapeResultPlain(t *testing.T) {
	got := TruncateScrapeResult(strings.Repeat("y", 100), 10)
	if got != strings.Repeat("y", 10) {
		t.Errorf("got %q", got)
	}
}

func TestTruncateScrapeResultUnderLimit(t *testing.T) {
	if got := TruncateScrapeResult("short", 100); got != "short" {
		t.Errorf("got %q, want unchanged", got)
	}
	if got := TruncateScrapeResult("anything", 0); got != "anything" {
		t.Errorf("max 0 truncated: %q", got)
	}
}
