package core

// Role labels the author of a message in a conversation transcript.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleToolResult marks messages that answer a prior tool call.
	RoleToolResult Role = "tool_result"
)

// StopReason records why the model stopped producing an inference message.
type StopReason string

const (
	// StopReasonTool indicates the model stopped to request tool executions.
	StopReasonTool StopReason = "tool"
	// StopReasonStop indicates a natural completion.
	StopReasonStop StopReason = "stop"
)

// Message represents a polymorphic entry in a conversation transcript.
// Concrete message types implement the unexported isMessage marker enabling
// a closed set. Messages are immutable value types; build new ones rather
// than mutating entries already handed to a State.
type Message interface{ isMessage() }

// TextMessage is a plain text entry attributed to a role.
type TextMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	StopReason StopReason `json:"stop_reason,omitempty"` // Set on inference output only
}

// isMessage implements the Message interface for TextMessage.
func (TextMessage) isMessage() {}

// ToolCall describes a single tool invocation requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`    // Provider-assigned call id, echoed back in the result
	Name  string         `json:"name"`  // Tool name as exposed to the model
	Input map[string]any `json:"input"` // Parsed argument payload
}

// ToolCallMessage is an assistant turn requesting one or more tool executions.
type ToolCallMessage struct {
	Role       Role       `json:"role"`
	Tools      []ToolCall `json:"tools"`
	StopReason StopReason `json:"stop_reason,omitempty"`
}

// isMessage implements the Message interface for ToolCallMessage.
func (ToolCallMessage) isMessage() {}

// ToolResultMessage carries the outcome of exactly one prior ToolCall.
// Content holds the handler's return value, or a ToolErrorContent when the
// handler failed.
type ToolResultMessage struct {
	Role       Role       `json:"role"`
	Tool       ToolCall   `json:"tool"` // Originating call
	Content    any        `json:"content"`
	StopReason StopReason `json:"stop_reason,omitempty"`
}

// isMessage implements the Message interface for ToolResultMessage.
func (ToolResultMessage) isMessage() {}

// NewTextMessage constructs a text message for an arbitrary role.
func NewTextMessage(role Role, content string) TextMessage {
	return TextMessage{Role: role, Content: content}
}

// NewSystemMessage constructs a system-role text message.
func NewSystemMessage(content string) TextMessage {
	return NewTextMessage(RoleSystem, content)
}

// NewUserMessage constructs a user-role text message.
func NewUserMessage(content string) TextMessage {
	return NewTextMessage(RoleUser, content)
}

// NewAssistantMessage constructs an assistant-role text message.
func NewAssistantMessage(content string) TextMessage {
	return NewTextMessage(RoleAssistant, content)
}

// NewToolCallMessage constructs an assistant turn carrying tool invocation
// requests.
func NewToolCallMessage(calls ...ToolCall) ToolCallMessage {
	return ToolCallMessage{Role: RoleAssistant, Tools: calls, StopReason: StopReasonTool}
}

// NewToolResultMessage constructs the result entry for a completed tool call.
func NewToolResultMessage(call ToolCall, content any) ToolResultMessage {
	return ToolResultMessage{Role: RoleToolResult, Tool: call, Content: content}
}
