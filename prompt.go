package miroflow

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PromptOptions carries the run-level toggles prompt providers honor.
type PromptOptions struct {
	// ChineseContext adds bilingual guidance for tasks grounded in
	// Chinese-language sources.
	ChineseContext bool
	// Date anchors "today" references in the prompt. Zero means time.Now().
	Date time.Time
}

// PromptProvider produces the system and summary prompts for one agent
// class. Implementations form a closed set registered at init time and are
// selected by the prompt_class config string; there is no runtime loading.
type PromptProvider interface {
	// SystemPrompt renders the full system prompt, embedding the tool
	// listing for the servers visible to this agent.
	SystemPrompt(servers []ServerDefinition, opts PromptOptions) string
	// SummaryPrompt renders the session-ending report instruction.
	// taskFailed prepends the budget-exhaustion notice.
	SummaryPrompt(task string, taskFailed bool, opts PromptOptions) string
}

var promptClasses = map[string]func() PromptProvider{}

// RegisterPromptClass adds a prompt provider constructor under a class name.
// Later registrations under the same name win, so applications can override
// the built-ins.
func RegisterPromptClass(name string, f func() PromptProvider) {
	promptClasses[name] = f
}

// NewPromptProvider resolves a config prompt_class string.
func NewPromptProvider(name string) (PromptProvider, error) {
	f, ok := promptClasses[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt class %q (registered: %s)", name, strings.Join(promptClassNames(), ", "))
	}
	return f(), nil
}

func promptClassNames() []string {
	names := make([]string, 0, len(promptClasses))
	for n := range promptClasses {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
