package miroflow

import "strings"

// defaultKeyTokens are the markers withheld from streamed output. Tool-call
// blocks are dispatched by the engine after the full response arrives;
// leaking them mid-stream would show observers raw protocol text.
var defaultKeyTokens = []string{"<use_mcp_tool>"}

// TokenInterceptor filters a token stream so that forbidden markers, and any
// chunk that could still turn out to be the start of one, never reach the
// observer. Output is invariant under re-chunking: however the stream is
// split, the concatenation of emitted text is the same.
//
// One interceptor serves one stream; it is not safe for concurrent use.
type TokenInterceptor struct {
	tokens []string
	buffer string
}

// NewTokenInterceptor creates an interceptor for the given markers. With no
// arguments it guards the default tool-call marker.
func NewTokenInterceptor(tokens ...string) *TokenInterceptor {
	if len(tokens) == 0 {
		tokens = defaultKeyTokens
	}
	return &TokenInterceptor{tokens: tokens}
}

// Process consumes one stream chunk and returns the text safe to emit now.
// ok is false when nothing can be emitted yet. With isLast set, the buffer is
// flushed up to the first forbidden marker (everything from the marker on is
// suppressed) and the interceptor resets.
func (ti *TokenInterceptor) Process(delta string, isLast bool) (string, bool) {
	ti.buffer += delta

	if isLast {
		out := ti.buffer
		cut := len(out)
		for _, tok := range ti.tokens {
			if i := strings.Index(out, tok); i >= 0 && i < cut {
				cut = i
			}
		}
		ti.buffer = ""
		if cut == 0 {
			return "", false
		}
		return out[:cut], true
	}

	// Complete marker mid-buffer: emit the prefix, withhold from the marker on.
	cut := -1
	for _, tok := range ti.tokens {
		if i := strings.Index(ti.buffer, tok); i >= 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut >= 0 {
		out := ti.buffer[:cut]
		ti.buffer = ti.buffer[cut:]
		if out == "" {
			return "", false
		}
		return out, true
	}

	// No complete marker. Hold back the longest suffix that is still a
	// prefix of some marker; everything before it is safe.
	hold := 0
	for _, tok := range ti.tokens {
		limit := len(tok) - 1
		if limit > len(ti.buffer) {
			limit = len(ti.buffer)
		}
		for n := limit; n > hold; n-- {
			if strings.HasPrefix(tok, ti.buffer[len(ti.buffer)-n:]) {
				hold = n
				break
			}
		}
	}
	if hold >= len(ti.buffer) {
		return "", false
	}
	out := ti.buffer[:len(ti.buffer)-hold]
	ti.buffer = ti.buffer[len(ti.buffer)-hold:]
	if out == "" {
		return "", false
	}
	return out, true
}

// ContainsToken reports whether text contains any of the guarded markers.
func (ti *TokenInterceptor) ContainsToken(text string) bool {
	for _, tok := range ti.tokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}
