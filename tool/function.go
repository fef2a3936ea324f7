package tool

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/internal/schema"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// tool.
//
// Responsibilities:
//   - Holds a JSON-Schema-like parameter specification
//   - Validates model supplied arguments against that schema before execution
//   - Invokes the wrapped function with a *core.ToolContext giving access to
//     shared state, scheduling, logging and the tool call id
//   - Rejects invalid arguments with *Error{Code: "VALIDATION_ERROR"} and
//     forwards function errors unchanged, preserving their identity for the
//     serialized tool result
//
// Concurrency:
//
//	A FunctionTool has no internal mutable state after construction and is
//	safe for concurrent use by multiple goroutines.
//
// Returned result:
//
//	The returned value can be any Go type that is JSON-serializable by the
//	higher layer. A nil result is replaced with a fixed acknowledgement
//	before it reaches the transcript, so handlers may return (nil, nil).
type FunctionTool struct {
	// Tool identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// User supplied implementation
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// New constructs a FunctionTool from explicit schema and function.
//
// Arguments:
//
//	name        - unique tool name (avoid collisions; snake_case suggested)
//	description - concise, imperative description ("Calculate the ...")
//	parameters  - minimal JSON-Schema-like map describing accepted arguments
//	fn          - implementation receiving a ToolContext plus validated args
//
// Example:
//
//	sumTool := tool.New(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func New(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewTyped derives the parameter schema from the Args struct via reflection
// and decodes incoming arguments into it before invoking fn.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" jsonschema:"required,description=First addend"`
//	  B float64 `json:"b" jsonschema:"required,description=Second addend"`
//	}
//
//	sumTool, err := tool.NewTyped(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  func(tc *core.ToolContext, args SumArgs) (any, error) {
//	    return args.A + args.B, nil
//	  },
//	)
func NewTyped[Args any](
	name, description string,
	fn func(toolCtx *core.ToolContext, args Args) (any, error),
) (*FunctionTool, error) {
	var zero Args

	params, err := schema.FromStruct(&zero)
	if err != nil {
		return nil, fmt.Errorf("derive schema for %s: %w", name, err)
	}

	wrapped := func(toolCtx *core.ToolContext, raw map[string]any) (any, error) {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, &Error{
				Tool:    name,
				Message: fmt.Sprintf("encode arguments: %v", err),
				Code:    CodeValidation,
			}
		}

		var args Args
		if err := json.Unmarshal(data, &args); err != nil {
			return nil, &Error{
				Tool:    name,
				Message: fmt.Sprintf("decode arguments: %v", err),
				Code:    CodeValidation,
			}
		}

		return fn(toolCtx, args)
	}

	return New(name, description, params, wrapped), nil
}

// MustTyped is NewTyped panicking on schema derivation failure. Intended for
// tool registration at program start.
func MustTyped[Args any](
	name, description string,
	fn func(toolCtx *core.ToolContext, args Args) (any, error),
) *FunctionTool {
	t, err := NewTyped(name, description, fn)
	if err != nil {
		panic(err)
	}

	return t
}

// Name returns the unique tool name used in function call declarations.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to
// models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates the provided args against the declared schema then invokes
// the underlying function.
//
// Error semantics:
//
//	validation failure  -> *Error{Code: "VALIDATION_ERROR"}
//	function error      -> forwarded unchanged, so the serialized tool
//	                       result keeps the function's own error identity
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "call_id", toolCtx.CallID())

	if err := schema.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &Error{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, err
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
