package testutil

import (
	"github.com/agentnetio/agentnet/core"
)

// ResultBuilder provides a fluent helper for constructing agent results in
// tests. Example:
//
//	r := NewResultBuilder("worker").Text("done").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type ResultBuilder struct {
	agentName string
	output    []core.Message
	toolCalls []core.ToolResultMessage
}

// NewResultBuilder creates a builder for a result authored by the named agent.
func NewResultBuilder(agentName string) *ResultBuilder {
	return &ResultBuilder{agentName: agentName}
}

// Text appends an assistant text message to the result output (chainable).
func (b *ResultBuilder) Text(t string) *ResultBuilder {
	b.output = append(b.output, core.NewAssistantMessage(t))
	return b
}

// Message appends an arbitrary output message (chainable).
func (b *ResultBuilder) Message(m core.Message) *ResultBuilder {
	b.output = append(b.output, m)
	return b
}

// ToolCall records a resolved tool invocation with its result content
// (chainable). The call is mirrored into the output as the model adapters
// would report it.
func (b *ResultBuilder) ToolCall(id, name string, input map[string]any, content any) *ResultBuilder {
	call := core.ToolCall{ID: id, Name: name, Input: input}

	b.output = append(b.output, core.NewToolCallMessage(call))
	b.toolCalls = append(b.toolCalls, core.NewToolResultMessage(call, content))

	return b
}

// Build constructs the *core.AgentResult with a generated id and timestamp.
func (b *ResultBuilder) Build() *core.AgentResult {
	return core.NewAgentResult(b.agentName, b.output, b.toolCalls)
}

// StateBuilder helps construct network states with fluent chaining for
// tests. Example:
//
//	s := NewStateBuilder().KV("customer", "acme").UserText("hi").Build()
type StateBuilder struct {
	data     map[string]any
	messages []core.Message
	results  []*core.AgentResult
	threadID string
	userID   string
}

// NewStateBuilder creates a new builder for an empty state.
func NewStateBuilder() *StateBuilder {
	return &StateBuilder{data: map[string]any{}}
}

// KV sets or overwrites a key/value pair in the state store (chainable).
func (b *StateBuilder) KV(key string, val any) *StateBuilder {
	b.data[key] = val
	return b
}

// UserText appends a user text message to the seed transcript (chainable).
func (b *StateBuilder) UserText(t string) *StateBuilder {
	b.messages = append(b.messages, core.NewUserMessage(t))
	return b
}

// Messages appends seed messages to the transcript (chainable).
func (b *StateBuilder) Messages(msgs ...core.Message) *StateBuilder {
	b.messages = append(b.messages, msgs...)
	return b
}

// Results appends pre-existing agent results, as a history hydration would
// (chainable).
func (b *StateBuilder) Results(results ...*core.AgentResult) *StateBuilder {
	b.results = append(b.results, results...)
	return b
}

// Thread pins the state to an existing thread id (chainable).
func (b *StateBuilder) Thread(id string) *StateBuilder {
	b.threadID = id
	return b
}

// User attributes the state to an end user (chainable).
func (b *StateBuilder) User(id string) *StateBuilder {
	b.userID = id
	return b
}

// Build returns the populated *core.State.
func (b *StateBuilder) Build() *core.State {
	s := core.NewState(func(o *core.StateOptions) {
		o.Data = b.data
		o.Messages = b.messages
		o.ThreadID = b.threadID
		o.UserID = b.userID
	})

	if len(b.results) > 0 {
		s.SetResults(b.results)
	}

	return s
}
