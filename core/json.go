package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire type discriminators for the Message union.
const (
	messageTypeText       = "text"
	messageTypeToolCall   = "tool_call"
	messageTypeToolResult = "tool_result"
)

// messageEnvelope is the tagged wire form shared by all message kinds.
type messageEnvelope struct {
	Type       string          `json:"type"`
	Role       Role            `json:"role,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
	Tools      []ToolCall      `json:"tools,omitempty"`
	Tool       *ToolCall       `json:"tool,omitempty"`
	StopReason StopReason      `json:"stop_reason,omitempty"`
}

// MarshalMessage serializes a message into its tagged wire form. The tag
// allows heterogeneous message lists to round-trip through storage.
func MarshalMessage(m Message) ([]byte, error) {
	env := messageEnvelope{}

	switch msg := m.(type) {
	case TextMessage:
		env.Type = messageTypeText
		env.Role = msg.Role
		env.StopReason = msg.StopReason

		content, err := json.Marshal(msg.Content)
		if err != nil {
			return nil, fmt.Errorf("marshal text content: %w", err)
		}

		env.Content = content
	case ToolCallMessage:
		env.Type = messageTypeToolCall
		env.Role = msg.Role
		env.Tools = msg.Tools
		env.StopReason = msg.StopReason
	case ToolResultMessage:
		env.Type = messageTypeToolResult
		env.Role = msg.Role
		env.Tool = &msg.Tool
		env.StopReason = msg.StopReason

		content, err := json.Marshal(msg.Content)
		if err != nil {
			return nil, fmt.Errorf("marshal tool result content: %w", err)
		}

		env.Content = content
	default:
		return nil, fmt.Errorf("unsupported message type %T", m)
	}

	return json.Marshal(env)
}

// UnmarshalMessage decodes a tagged wire form back into a concrete message.
func UnmarshalMessage(data []byte) (Message, error) {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	switch env.Type {
	case messageTypeText:
		var content string
		if len(env.Content) > 0 {
			if err := json.Unmarshal(env.Content, &content); err != nil {
				return nil, fmt.Errorf("unmarshal text content: %w", err)
			}
		}

		return TextMessage{Role: env.Role, Content: content, StopReason: env.StopReason}, nil
	case messageTypeToolCall:
		return ToolCallMessage{Role: env.Role, Tools: env.Tools, StopReason: env.StopReason}, nil
	case messageTypeToolResult:
		if env.Tool == nil {
			return nil, fmt.Errorf("tool result message missing tool")
		}

		var content any
		if len(env.Content) > 0 {
			if err := json.Unmarshal(env.Content, &content); err != nil {
				return nil, fmt.Errorf("unmarshal tool result content: %w", err)
			}
		}

		return ToolResultMessage{Role: env.Role, Tool: *env.Tool, Content: content, StopReason: env.StopReason}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

func marshalMessages(msgs []Message) ([]json.RawMessage, error) {
	raws := make([]json.RawMessage, 0, len(msgs))

	for _, m := range msgs {
		raw, err := MarshalMessage(m)
		if err != nil {
			return nil, err
		}

		raws = append(raws, raw)
	}

	return raws, nil
}

func unmarshalMessages(raws []json.RawMessage) ([]Message, error) {
	msgs := make([]Message, 0, len(raws))

	for _, raw := range raws {
		m, err := UnmarshalMessage(raw)
		if err != nil {
			return nil, err
		}

		msgs = append(msgs, m)
	}

	return msgs, nil
}

// agentResultWire is the persisted form of an AgentResult. Debug captures
// (prompt, history, raw response) are deliberately excluded.
type agentResultWire struct {
	ID        string            `json:"id"`
	AgentName string            `json:"agent_name"`
	Output    []json.RawMessage `json:"output"`
	ToolCalls []json.RawMessage `json:"tool_calls"`
	CreatedAt time.Time         `json:"created_at"`
}

// MarshalJSON implements json.Marshaler for AgentResult.
func (r *AgentResult) MarshalJSON() ([]byte, error) {
	output, err := marshalMessages(r.Output)
	if err != nil {
		return nil, err
	}

	toolCalls := make([]json.RawMessage, 0, len(r.ToolCalls))

	for _, tr := range r.ToolCalls {
		raw, err := MarshalMessage(tr)
		if err != nil {
			return nil, err
		}

		toolCalls = append(toolCalls, raw)
	}

	return json.Marshal(agentResultWire{
		ID:        r.ID,
		AgentName: r.AgentName,
		Output:    output,
		ToolCalls: toolCalls,
		CreatedAt: r.CreatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler for AgentResult.
func (r *AgentResult) UnmarshalJSON(data []byte) error {
	var wire agentResultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("unmarshal agent result: %w", err)
	}

	output, err := unmarshalMessages(wire.Output)
	if err != nil {
		return err
	}

	toolCalls := make([]ToolResultMessage, 0, len(wire.ToolCalls))

	for _, raw := range wire.ToolCalls {
		m, err := UnmarshalMessage(raw)
		if err != nil {
			return err
		}

		tr, ok := m.(ToolResultMessage)
		if !ok {
			return fmt.Errorf("agent result tool call is %T, want tool result", m)
		}

		toolCalls = append(toolCalls, tr)
	}

	r.ID = wire.ID
	r.AgentName = wire.AgentName
	r.Output = output
	r.ToolCalls = toolCalls
	r.CreatedAt = wire.CreatedAt

	return nil
}
