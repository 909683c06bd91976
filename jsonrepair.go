package miroflow

import (
	"encoding/json"
	"regexp"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

// argParseErrorMessage is the fixed error value surfaced to the tool layer
// when every repair strategy fails. The raw argument text rides along so the
// tool (or the model, on the next turn) can see what was sent.
const argParseErrorMessage = "Failed to parse arguments"

// robustUnmarshal tries strict JSON first, then JSON5 for the common model
// mistakes (single quotes, trailing commas, unquoted keys).
func robustUnmarshal(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err == nil && m != nil {
		return m, true
	}
	m = nil
	if err := json5.Unmarshal([]byte(s), &m); err == nil && m != nil {
		return m, true
	}
	return nil, false
}

// parseArguments runs the repair ladder on one raw argument string:
// strict JSON, lenient JSON5, then the shape-specific repair function, and
// finally the fixed error map. Parsing never fails the call itself.
func parseArguments(raw string, repair func(string) string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	if m, ok := robustUnmarshal(raw); ok {
		return m
	}
	if repair != nil {
		if fixed := repair(raw); fixed != "" {
			if m, ok := robustUnmarshal(fixed); ok {
				return m
			}
		}
	}
	return map[string]any{"error": argParseErrorMessage, "raw": raw}
}

// literalRepair converts Python-flavored output to JSON: single quotes and
// bare Python literals. Used for native tool-call argument strings, which
// are short and flat; XML argument bodies get the key-aware path instead.
func literalRepair(raw string) string {
	s := strings.ReplaceAll(raw, "'", `"`)
	s = wordNone.ReplaceAllString(s, "null")
	s = wordTrue.ReplaceAllString(s, "true")
	s = wordFalse.ReplaceAllString(s, "false")
	return s
}

var (
	wordNone  = regexp.MustCompile(`\bNone\b`)
	wordTrue  = regexp.MustCompile(`\bTrue\b`)
	wordFalse = regexp.MustCompile(`\bFalse\b`)

	wordNull   = regexp.MustCompile(`\bnull\b`)
	wordLTrue  = regexp.MustCompile(`\btrue\b`)
	wordLFalse = regexp.MustCompile(`\bfalse\b`)

	// keyQuoteRe finds `"key": "` openers of string values. Preceding-byte
	// checks outside the regex stand in for lookbehind.
	keyQuoteRe = regexp.MustCompile(`"([\w-]+)"\s*:\s*"`)
)

// reEscapeByKey rebuilds an argument object whose string values contain
// unescaped quotes or newlines (typical for code and shell commands pasted
// verbatim into JSON). It locates the top-level keys, takes everything
// between them as the raw value, and re-escapes each value under the policy
// for its key.
func reEscapeByKey(raw string) string {
	locs := keyQuoteRe.FindAllStringSubmatchIndex(raw, -1)
	type keySpan struct {
		key      string
		valStart int // after the opening quote of the value
		keyStart int
	}
	var spans []keySpan
	for _, l := range locs {
		if l[0] > 0 && raw[l[0]-1] == '\\' {
			continue
		}
		spans = append(spans, keySpan{key: raw[l[2]:l[3]], valStart: l[1], keyStart: l[0]})
	}
	if len(spans) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, sp := range spans {
		regionEnd := len(raw)
		if i+1 < len(spans) {
			regionEnd = spans[i+1].keyStart
		}
		content, ok := extractStringValue(raw[sp.valStart:regionEnd], i+1 == len(spans))
		if !ok {
			return ""
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('"')
		b.WriteString(sp.key)
		b.WriteString(`": "`)
		b.WriteString(escapeStringContent(content, sp.key))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// extractStringValue finds the real closing quote of a string value region by
// scanning backwards for a quote whose tail is only value-terminator
// punctuation. last marks the final key, whose region still ends with the
// object's closing brace.
func extractStringValue(region string, last bool) (string, bool) {
	for i := len(region) - 1; i >= 0; i-- {
		if region[i] != '"' {
			continue
		}
		rest := strings.TrimSpace(region[i+1:])
		switch {
		case rest == "":
			return region[:i], true
		case strings.HasPrefix(rest, ","):
			return region[:i], true
		case last && strings.HasPrefix(rest, "}"):
			return region[:i], true
		}
	}
	return "", false
}

// escapeStringContent re-escapes one raw string value for embedding in JSON,
// after normalizing bare literals under the key's policy: code bodies keep
// Python literals, shell commands get shell-friendly ones, everything else
// gets JSON literals.
func escapeStringContent(content, key string) string {
	switch key {
	case "code_block":
		content = wordNull.ReplaceAllString(content, "None")
		content = wordLTrue.ReplaceAllString(content, "True")
		content = wordLFalse.ReplaceAllString(content, "False")
	case "command":
		content = wordTrue.ReplaceAllString(content, "true")
		content = wordFalse.ReplaceAllString(content, "false")
		content = wordNone.ReplaceAllString(content, `""`)
	default:
		content = wordNone.ReplaceAllString(content, "null")
		content = wordTrue.ReplaceAllString(content, "true")
		content = wordFalse.ReplaceAllString(content, "false")
	}

	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
