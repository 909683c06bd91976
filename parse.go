package miroflow

import (
	"regexp"
	"strings"
)

// mcpBlockRe matches a complete <use_mcp_tool> block. Lazy quantifiers keep
// adjacent blocks separate; (?is) makes matching case-insensitive and lets
// arguments span lines.
var mcpBlockRe = regexp.MustCompile(`(?is)<use_mcp_tool[^>]*?>\s*<server_name[^>]*?>(.*?)</server_name>\s*<tool_name[^>]*?>(.*?)</tool_name>\s*<arguments[^>]*?>\s*([\s\S]*?)\s*</arguments>\s*</use_mcp_tool>`)

// mcpTags are the block tags checked for unclosed occurrences, outermost first.
var mcpTags = []string{"use_mcp_tool", "server_name", "tool_name", "arguments"}

// ParseToolCalls extracts tool invocations from an LLM response. Native tool
// calls win over output items, which win over XML blocks in the text; the
// three shapes are never mixed.
func ParseToolCalls(resp *Response) ParsedCalls {
	if resp == nil {
		return ParsedCalls{}
	}
	if len(resp.NativeCalls) > 0 {
		return parseNativeCalls(resp.NativeCalls)
	}
	if len(resp.OutputItems) > 0 {
		if pc := parseOutputItems(resp.OutputItems); !pc.Empty() {
			return pc
		}
	}
	return parseMCPBlocks(resp.Text, true)
}

// parseNativeCalls converts provider-native tool calls. The name joins
// server and tool with a hyphen; the split is at the last hyphen so server
// names may themselves contain hyphens (e.g. "agent-worker").
func parseNativeCalls(calls []NativeToolCall) ParsedCalls {
	var pc ParsedCalls
	for _, c := range calls {
		idx := strings.LastIndex(c.Name, "-")
		if idx <= 0 || idx == len(c.Name)-1 {
			pc.Malformed = append(pc.Malformed, MalformedCall{
				Reason:  "Tool name missing server prefix: " + c.Name,
				Content: c.Name,
			})
			continue
		}
		pc.Valid = append(pc.Valid, ToolCall{
			ServerName: c.Name[:idx],
			ToolName:   c.Name[idx+1:],
			Arguments:  parseArguments(c.Arguments, literalRepair),
			CallID:     c.ID,
		})
	}
	return pc
}

// parseOutputItems converts a response-API output list; only function_call
// items carry invocations.
func parseOutputItems(items []OutputItem) ParsedCalls {
	var pc ParsedCalls
	for _, it := range items {
		if it.Type != "function_call" {
			continue
		}
		idx := strings.LastIndex(it.Name, "-")
		if idx <= 0 || idx == len(it.Name)-1 {
			pc.Malformed = append(pc.Malformed, MalformedCall{
				Reason:  "Tool name missing server prefix: " + it.Name,
				Content: it.Name,
			})
			continue
		}
		pc.Valid = append(pc.Valid, ToolCall{
			ServerName: it.Name[:idx],
			ToolName:   it.Name[idx+1:],
			Arguments:  parseArguments(it.Arguments, literalRepair),
			CallID:     it.CallID,
		})
	}
	return pc
}

// parseMCPBlocks extracts <use_mcp_tool> blocks from assistant text.
// allowRepair permits one transparent re-parse after inserting a missing
// </arguments> tag when that is the only structural problem.
func parseMCPBlocks(text string, allowRepair bool) ParsedCalls {
	var pc ParsedCalls
	if !strings.Contains(strings.ToLower(text), "<use_mcp_tool") {
		return pc
	}
	for _, m := range mcpBlockRe.FindAllStringSubmatch(text, -1) {
		pc.Valid = append(pc.Valid, ToolCall{
			ServerName: strings.TrimSpace(m[1]),
			ToolName:   strings.TrimSpace(m[2]),
			Arguments:  parseArguments(strings.TrimSpace(m[3]), reEscapeByKey),
		})
	}
	mal := findUnclosedTags(text)
	if allowRepair && len(mal) == 1 && strings.HasPrefix(mal[0].Reason, "Unclosed arguments") {
		if repaired, ok := closeArgumentsTag(text); ok {
			return parseMCPBlocks(repaired, false)
		}
	}
	pc.Malformed = append(pc.Malformed, mal...)
	return pc
}

// findUnclosedTags scans for opening MCP tags that never close. The scan is
// case-insensitive and per tag kind, mirroring how the block regex matches.
func findUnclosedTags(text string) []MalformedCall {
	lower := strings.ToLower(text)
	var out []MalformedCall
	for _, tag := range mcpTags {
		open := "<" + tag
		closing := "</" + tag + ">"
		pos := 0
		for {
			i := strings.Index(lower[pos:], open)
			if i < 0 {
				break
			}
			i += pos
			j := strings.Index(lower[i:], closing)
			if j < 0 {
				content := text[i:]
				if len(content) > 200 {
					content = content[:200]
				}
				out = append(out, MalformedCall{
					Reason:  "Unclosed " + tag + " tag",
					Content: content,
				})
				break
			}
			pos = i + j + len(closing)
		}
	}
	return out
}

// closeArgumentsTag inserts </arguments> for the first unclosed <arguments>
// opening: before the next closing tag after it, or at the end of the text.
func closeArgumentsTag(text string) (string, bool) {
	lower := strings.ToLower(text)
	pos := 0
	for {
		i := strings.Index(lower[pos:], "<arguments")
		if i < 0 {
			return "", false
		}
		i += pos
		if j := strings.Index(lower[i:], "</arguments>"); j >= 0 {
			pos = i + j + len("</arguments>")
			continue
		}
		gt := strings.Index(text[i:], ">")
		if gt < 0 {
			return "", false
		}
		bodyStart := i + gt + 1
		at := strings.Index(lower[bodyStart:], "</")
		if at < 0 {
			return text + "</arguments>", true
		}
		at += bodyStart
		return text[:at] + "</arguments>" + text[at:], true
	}
}
