package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentResult is the immutable record of one agent execution: the inference
// output plus the tool results produced while handling it. Results accumulate
// on the shared State and form the conversation history presented to later
// agents in the same run.
type AgentResult struct {
	ID        string
	AgentName string
	Output    []Message           // Inference output messages, in order
	ToolCalls []ToolResultMessage // Tool results resolved for this execution

	CreatedAt time.Time

	// Debug captures below are populated for inspection only. They are never
	// fed back into prompts and are excluded from the persisted form.
	Prompt  []Message // Exact prompt sent to the model
	History []Message // Prior history included in the prompt
	Raw     string    // Raw provider response payload
}

// NewAgentResult constructs a result record with a fresh id and creation
// timestamp.
func NewAgentResult(agentName string, output []Message, toolCalls []ToolResultMessage) *AgentResult {
	return &AgentResult{
		ID:        uuid.NewString(),
		AgentName: agentName,
		Output:    output,
		ToolCalls: toolCalls,
		CreatedAt: time.Now().UTC(),
	}
}

// HistoryFormatter projects a result into the transcript messages shown to
// subsequent agents. Implementations may compress, annotate or drop entries.
type HistoryFormatter func(r *AgentResult) []Message

// DefaultHistoryFormatter replays a result verbatim: output messages first,
// followed by the tool results they triggered.
func DefaultHistoryFormatter(r *AgentResult) []Message {
	msgs := make([]Message, 0, len(r.Output)+len(r.ToolCalls))
	msgs = append(msgs, r.Output...)

	for _, tr := range r.ToolCalls {
		msgs = append(msgs, tr)
	}

	return msgs
}

// Format projects the result through the given formatter, falling back to
// DefaultHistoryFormatter when f is nil.
func (r *AgentResult) Format(f HistoryFormatter) []Message {
	if f == nil {
		f = DefaultHistoryFormatter
	}

	return f(r)
}

// TextOutput concatenates the text content of the result's output messages.
// Convenient for logging and for surfacing a final answer to callers.
func (r *AgentResult) TextOutput() string {
	var parts []string

	for _, msg := range r.Output {
		if text, ok := msg.(TextMessage); ok && text.Content != "" {
			parts = append(parts, text.Content)
		}
	}

	return strings.Join(parts, "\n")
}
