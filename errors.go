package miroflow

import (
	"errors"
	"fmt"
)

// ContextLimitError signals that the provider rejected a request because the
// conversation no longer fits its context window. The loop treats it as a
// state transition (summary pruning), never as a fatal failure.
type ContextLimitError struct {
	Provider string
	Message  string
}

func (e *ContextLimitError) Error() string {
	return fmt.Sprintf("%s: context window exceeded: %s", e.Provider, e.Message)
}

// IsContextLimit reports whether err is (or wraps) a ContextLimitError.
func IsContextLimit(err error) bool {
	var e *ContextLimitError
	return errors.As(err, &e)
}

// LLMError is a non-overflow provider failure.
type LLMError struct {
	Provider string
	Message  string
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
