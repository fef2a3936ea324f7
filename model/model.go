package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentnetio/agentnet/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset
// expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ToolChoiceMode selects how strongly the model is steered toward tool use.
type ToolChoiceMode string

const (
	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto ToolChoiceMode = "auto"
	// ToolChoiceAny forces the model to call some tool.
	ToolChoiceAny ToolChoiceMode = "any"
	// ToolChoiceTool forces the model to call one specific tool.
	ToolChoiceTool ToolChoiceMode = "tool"
)

// ToolChoice constrains how the model may use the declared tools. The zero
// value behaves like ToolChoiceAuto.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode,omitempty"`
	Name string         `json:"name,omitempty"` // Required when Mode is ToolChoiceTool
}

// Request captures the normalized model input produced by an agent's
// prompting phase. System instructions travel as leading system-role
// messages; providers that want them separated peel them off.
type Request struct {
	AgentID    string           `json:"agent_id,omitempty"` // Calling agent, for logging and telemetry
	Messages   []core.Message   `json:"messages"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice ToolChoice       `json:"tool_choice,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the parsed outcome of a single inference call. Output carries
// assistant text and/or tool call messages with their stop reason attached;
// Raw preserves the provider payload for debugging.
type Response struct {
	Output []core.Message `json:"output"`
	Usage  TokenUsage     `json:"usage"`
	Raw    string         `json:"-"`
}

// ToolCalls collects the tool invocations requested across the response's
// output messages.
func (r *Response) ToolCalls() []core.ToolCall {
	var calls []core.ToolCall

	for _, msg := range r.Output {
		if tc, ok := msg.(core.ToolCallMessage); ok {
			calls = append(calls, tc.Tools...)
		}
	}

	return calls
}

// StopReason returns the stop reason of the last output message carrying
// one, or empty when the response carries none.
func (r *Response) StopReason() core.StopReason {
	for i := len(r.Output) - 1; i >= 0; i-- {
		switch msg := r.Output[i].(type) {
		case core.TextMessage:
			if msg.StopReason != "" {
				return msg.StopReason
			}
		case core.ToolCallMessage:
			if msg.StopReason != "" {
				return msg.StopReason
			}
		}
	}

	return ""
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents and routers to drive
// generation.
type Model interface {
	// Infer performs one model call and returns the parsed response.
	Infer(ctx context.Context, req *Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// mockStep is one scripted reply: a response or an error.
type mockStep struct {
	resp *Response
	err  error
}

// Mock is a lightweight in-memory Model useful for tests & examples. It
// replays a scripted sequence of responses in order and records every
// request it receives. With an empty script it echoes the last user message.
type Mock struct {
	mu       sync.Mutex
	info     Info
	script   []mockStep
	requests []*Request
	callSeq  int
}

// NewMock constructs a Mock with basic tool support enabled.
func NewMock(name string) *Mock {
	return &Mock{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
	}
}

// Enqueue appends a full response to the script.
func (m *Mock) Enqueue(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, mockStep{resp: resp})
}

// EnqueueText appends a final text response to the script.
func (m *Mock) EnqueueText(text string) {
	m.Enqueue(&Response{
		Output: []core.Message{
			core.TextMessage{Role: core.RoleAssistant, Content: text, StopReason: core.StopReasonStop},
		},
	})
}

// EnqueueToolCall appends a tool call response to the script with a
// deterministic call id.
func (m *Mock) EnqueueToolCall(name string, input map[string]any) {
	m.mu.Lock()
	m.callSeq++
	id := fmt.Sprintf("call_%d", m.callSeq)
	m.mu.Unlock()

	m.Enqueue(&Response{
		Output: []core.Message{
			core.NewToolCallMessage(core.ToolCall{ID: id, Name: name, Input: input}),
		},
	})
}

// EnqueueError appends an inference failure to the script.
func (m *Mock) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, mockStep{err: err})
}

// Requests returns the requests received so far.
func (m *Mock) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	reqs := make([]*Request, len(m.requests))
	copy(reqs, m.requests)

	return reqs
}

// Infer implements Model; pops the next scripted step or echoes the last
// user message when the script is exhausted.
func (m *Mock) Infer(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		step := m.script[0]
		m.script = m.script[1:]

		if step.err != nil {
			return nil, step.err
		}

		return step.resp, nil
	}

	var lastUser string

	for _, msg := range req.Messages {
		if text, ok := msg.(core.TextMessage); ok && text.Role == core.RoleUser {
			lastUser = text.Content
		}
	}

	return &Response{
		Output: []core.Message{
			core.TextMessage{Role: core.RoleAssistant, Content: "Mock response to: " + lastUser, StopReason: core.StopReasonStop},
		},
	}, nil
}

// Info implements the Model interface.
func (m *Mock) Info() Info { return m.info }
