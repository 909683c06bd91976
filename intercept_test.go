package miroflow

import (
	"strings"
	"testing"
)

// feedChunks streams text through an interceptor in fixed-size chunks and
// returns the concatenated emitted output.
func feedChunks(ti *TokenInterceptor, text string, size int) string {
	var out strings.Builder
	for i := 0; i < len(text); i += size {
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		if s, ok := ti.Process(text[i:end], false); ok {
			out.WriteString(s)
		}
	}
	if s, ok := ti.Process("", true); ok {
		out.WriteString(s)
	}
	return out.String()
}

func TestInterceptorPassesPlainText(t *testing.T) {
	ti := NewTokenInterceptor()
	got := feedChunks(ti, "The answer is 42.", 3)
	if got != "The answer is 42." {
		t.Errorf("output = %q, want %q", got, "The answer is 42.")
	}
}

func TestInterceptorSuppressesMarker(t *testing.T) {
	text := "Let me check.\n<use_mcp_tool><server_name>search</server_name>"
	ti := NewTokenInterceptor()
	got := feedChunks(ti, text, len(text))
	if got != "Let me check.\n" {
		t.Errorf("output = %q, want text before the marker", got)
	}
}

func TestInterceptorChunkingInvariance(t *testing.T) {
	text := "Thinking about it.\n<use_mcp_tool><server_name>s</server_name><tool_name>t</tool_name><arguments>{}</arguments></use_mcp_tool>"
	want := feedChunks(NewTokenInterceptor(), text, len(text))
	for size := 1; size <= 13; size++ {
		got := feedChunks(NewTokenInterceptor(), text, size)
		if got != want {
			t.Errorf("chunk size %d: output = %q, want %q", size, got, want)
		}
	}
}

func TestInterceptorFalsePrefixEventuallyEmitted(t *testing.T) {
	ti := NewTokenInterceptor()
	var out strings.Builder

	// "<use" could still become the marker, so it is withheld.
	if s, ok := ti.Process("price <use", false); ok {
		out.WriteString(s)
	}
	if got := out.String(); strings.Contains(got, "<use") {
		t.Errorf("premature emit of possible marker prefix: %q", got)
	}

	// "ful" disambiguates: "<useful" is not the marker.
	if s, ok := ti.Process("ful data", false); ok {
		out.WriteString(s)
	}
	if s, ok := ti.Process("", true); ok {
		out.WriteString(s)
	}
	if got := out.String(); got != "price <useful data" {
		t.Errorf("output = %q, want %q", got, "price <useful data")
	}
}

func TestInterceptorWithholdReportsNotOK(t *testing.T) {
	ti := NewTokenInterceptor()
	if _, ok := ti.Process("<use_mcp", false); ok {
		t.Error("Process emitted while the chunk could still be a marker prefix")
	}
}

func TestInterceptorLastFlushStopsAtMarker(t *testing.T) {
	ti := NewTokenInterceptor()
	got, ok := ti.Process("done\n<use_mcp_tool>rest", true)
	if !ok || got != "done\n" {
		t.Errorf("final flush = %q, %v; want %q, true", got, ok, "done\n")
	}
}

func TestInterceptorCustomTokens(t *testing.T) {
	ti := NewTokenInterceptor("STOP")
	got := feedChunks(ti, "run until STOP and beyond", 4)
	if got != "run until " {
		t.Errorf("output = %q, want %q", got, "run until ")
	}
	if !ti.ContainsToken("aSTOPb") {
		t.Error("ContainsToken missed the custom marker")
	}
}
