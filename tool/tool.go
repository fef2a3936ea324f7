// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side effects) with
// schema validated arguments, consistent error handling and rich metadata for
// LLM guidance.
package tool

import (
	"fmt"

	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/internal/schema"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tools are registered with agents to enable function calling, allowing
// agents to perform actions beyond text generation such as API calls,
// calculations, database queries, or any other programmatic operations.
//
// All tools receive a ToolContext giving access to the shared run state, the
// surrounding network run and structured logging.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool. Names should follow
	// function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool
	// does. It is provided to the LLM to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// The schema is used for parameter validation and LLM function calling.
	Parameters() map[string]any

	// Call executes the tool with structured arguments and a ToolContext.
	// Arguments are parsed from JSON and validated against the tool's schema
	// before the handler runs.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError reports a parameter that failed schema validation.
type ValidationError = schema.ValidationError

// Error codes attached to failures wrapped by this package.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// Error represents a failure during tool execution.
type Error struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}

	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// ErrorName labels serialized tool failures in transcripts.
func (e *Error) ErrorName() string { return "ToolError" }

// NewError creates an Error with the specified details.
func NewError(tool, message, code string) *Error {
	return &Error{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
