package core

import (
	"testing"
)

func TestMessageConstructors(t *testing.T) {
	if m := NewUserMessage("hi"); m.Role != RoleUser || m.Content != "hi" {
		t.Fatalf("unexpected user message: %+v", m)
	}

	if m := NewSystemMessage("rules"); m.Role != RoleSystem {
		t.Fatalf("unexpected system role: %v", m.Role)
	}

	call := ToolCall{ID: "c1", Name: "search", Input: map[string]any{"q": "go"}}

	tc := NewToolCallMessage(call)
	if tc.Role != RoleAssistant || tc.StopReason != StopReasonTool || len(tc.Tools) != 1 {
		t.Fatalf("unexpected tool call message: %+v", tc)
	}

	tr := NewToolResultMessage(call, "ok")
	if tr.Role != RoleToolResult || tr.Tool.ID != "c1" || tr.Content != "ok" {
		t.Fatalf("unexpected tool result message: %+v", tr)
	}
}

func TestMessageWireRoundTrip(t *testing.T) {
	call := ToolCall{ID: "c1", Name: "search", Input: map[string]any{"q": "go"}}

	msgs := []Message{
		TextMessage{Role: RoleAssistant, Content: "done", StopReason: StopReasonStop},
		NewToolCallMessage(call),
		NewToolResultMessage(call, map[string]any{"hits": float64(3)}),
	}

	for _, m := range msgs {
		data, err := MarshalMessage(m)
		if err != nil {
			t.Fatalf("marshal %T: %v", m, err)
		}

		back, err := UnmarshalMessage(data)
		if err != nil {
			t.Fatalf("unmarshal %T: %v", m, err)
		}

		switch orig := m.(type) {
		case TextMessage:
			got := back.(TextMessage)
			if got != orig {
				t.Fatalf("text round trip mismatch: %+v != %+v", got, orig)
			}
		case ToolCallMessage:
			got := back.(ToolCallMessage)
			if got.Role != orig.Role || got.StopReason != orig.StopReason || len(got.Tools) != 1 || got.Tools[0].Name != "search" {
				t.Fatalf("tool call round trip mismatch: %+v", got)
			}
		case ToolResultMessage:
			got := back.(ToolResultMessage)
			if got.Tool.ID != "c1" {
				t.Fatalf("tool result lost originating call: %+v", got)
			}

			content := got.Content.(map[string]any)
			if content["hits"] != float64(3) {
				t.Fatalf("tool result content mismatch: %v", got.Content)
			}
		}
	}
}

func TestUnmarshalMessageUnknownType(t *testing.T) {
	if _, err := UnmarshalMessage([]byte(`{"type":"video"}`)); err == nil {
		t.Fatalf("expected error for unknown message type")
	}
}

func TestUnmarshalMessageMissingTool(t *testing.T) {
	if _, err := UnmarshalMessage([]byte(`{"type":"tool_result","role":"tool_result"}`)); err == nil {
		t.Fatalf("expected error for tool result without tool")
	}
}
