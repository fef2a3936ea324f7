package core

import "errors"

// ToolSuccessMessage is stored as the tool result content when a handler
// returns nil data, so the model still sees an acknowledgement.
const ToolSuccessMessage = "tool executed successfully"

// ErrorDetail is the structured serialization of a recovered error. Tool
// handler failures are folded into the transcript in this shape instead of
// aborting the run, letting the model observe and react to them.
type ErrorDetail struct {
	Name    string       `json:"name"`
	Message string       `json:"message"`
	Cause   *ErrorDetail `json:"cause,omitempty"`
}

// ToolErrorContent wraps an ErrorDetail as tool result content.
type ToolErrorContent struct {
	Error *ErrorDetail `json:"error"`
}

// namedError lets error types report a name more specific than the generic
// "Error" used in serialized details.
type namedError interface {
	ErrorName() string
}

// maxCauseDepth bounds cause chain serialization against cyclic Unwrap
// implementations.
const maxCauseDepth = 8

// NewErrorDetail serializes an error and its unwrap chain. Returns nil for a
// nil error.
func NewErrorDetail(err error) *ErrorDetail {
	return newErrorDetail(err, maxCauseDepth)
}

func newErrorDetail(err error, depth int) *ErrorDetail {
	if err == nil || depth == 0 {
		return nil
	}

	detail := &ErrorDetail{
		Name:    "Error",
		Message: err.Error(),
	}

	// Direct assertion only: each chain level reports its own name.
	if named, ok := err.(namedError); ok {
		detail.Name = named.ErrorName()
	}

	if cause := errors.Unwrap(err); cause != nil {
		detail.Cause = newErrorDetail(cause, depth-1)
	}

	return detail
}

// NewToolErrorContent builds the tool result content for a failed handler.
func NewToolErrorContent(err error) ToolErrorContent {
	return ToolErrorContent{Error: NewErrorDetail(err)}
}
