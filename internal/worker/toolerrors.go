package worker

import (
	"errors"
	"fmt"
)

// ToolError is a structured tool invocation failure. It preserves a
// message and an optional cause chain so errors.Is/As keep working even
// after the error has crossed a tool-call boundary, mirroring the
// teacher's runtime/agent/toolerrors package.
type ToolError struct {
	Message string
	Cause   *ToolError
}

// NewToolError constructs a ToolError with the given message.
func NewToolError(message string) *ToolError {
	if message == "" {
		message = "tool error"
	}
	return &ToolError{Message: message}
}

// NewToolErrorWithCause wraps an underlying error as a ToolError chain.
func NewToolErrorWithCause(message string, cause error) *ToolError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ToolError{Message: message, Cause: toolErrorFromError(cause)}
}

func toolErrorFromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Message: err.Error(), Cause: toolErrorFromError(errors.Unwrap(err))}
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// asToolTurn renders a tool failure as the text turn returned to the LLM
// — spec §4.10: "Tool errors return an error-payload turn to the LLM
// rather than aborting, so the model can recover."
func asToolTurn(toolName string, err error) string {
	return fmt.Sprintf(`{"error": %q}`, fmt.Sprintf("%s: %s", toolName, err.Error()))
}
