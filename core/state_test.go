package core

import (
	"fmt"
	"sync"
	"testing"
)

func TestStateDataRoundTrip(t *testing.T) {
	s := NewState()

	s.Set("customer", "acme")

	if v, ok := s.Get("customer"); !ok || v.(string) != "acme" {
		t.Fatalf("expected customer=acme, got %v (ok=%v)", v, ok)
	}

	if !s.Has("customer") {
		t.Fatalf("expected Has(customer) to be true")
	}

	s.Delete("customer")

	if s.Has("customer") {
		t.Fatalf("expected customer to be deleted")
	}
}

func TestStateSeedData(t *testing.T) {
	s := NewState(func(o *StateOptions) {
		o.Data = map[string]any{"plan": "pro"}
		o.UserID = "user-7"
	})

	if v, ok := s.Get("plan"); !ok || v.(string) != "pro" {
		t.Fatalf("expected seeded plan=pro, got %v", v)
	}

	if s.UserID() != "user-7" {
		t.Fatalf("expected user-7, got %q", s.UserID())
	}
}

func TestStateDataReturnsCopy(t *testing.T) {
	s := NewState()
	s.Set("a", 1)

	data := s.Data()
	data["a"] = 99
	data["b"] = 2

	if v, _ := s.Get("a"); v.(int) != 1 {
		t.Fatalf("mutating Data() copy changed state, got %v", v)
	}

	if s.Has("b") {
		t.Fatalf("mutating Data() copy added key to state")
	}
}

func TestStateResultsAppendOnly(t *testing.T) {
	s := NewState()

	r1 := NewAgentResult("planner", []Message{NewAssistantMessage("plan")}, nil)
	r2 := NewAgentResult("worker", []Message{NewAssistantMessage("done")}, nil)

	s.AppendResult(r1)
	s.AppendResult(r2)

	results := s.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].AgentName != "planner" || results[1].AgentName != "worker" {
		t.Fatalf("results out of order: %s, %s", results[0].AgentName, results[1].AgentName)
	}

	// The returned slice is a copy; truncating it must not affect the log.
	_ = append(results[:0], results[1])

	if s.ResultCount() != 2 {
		t.Fatalf("expected result log untouched, got %d entries", s.ResultCount())
	}
}

func TestStateResultsFrom(t *testing.T) {
	s := NewState()

	for i := 0; i < 5; i++ {
		s.AppendResult(NewAgentResult(fmt.Sprintf("agent-%d", i), nil, nil))
	}

	checkpoint := 2

	tail := s.ResultsFrom(checkpoint)
	if len(tail) != 3 {
		t.Fatalf("expected 3 trailing results, got %d", len(tail))
	}

	if tail[0].AgentName != "agent-2" || tail[2].AgentName != "agent-4" {
		t.Fatalf("unexpected tail: %s .. %s", tail[0].AgentName, tail[2].AgentName)
	}

	if got := s.ResultsFrom(-1); len(got) != 5 {
		t.Fatalf("expected negative index clamped to full log, got %d", len(got))
	}

	if got := s.ResultsFrom(100); len(got) != 0 {
		t.Fatalf("expected oversized index clamped to empty, got %d", len(got))
	}
}

func TestStateFormatHistory(t *testing.T) {
	seed := NewUserMessage("hello")

	s := NewState(func(o *StateOptions) {
		o.Messages = []Message{seed}
	})

	call := ToolCall{ID: "call-1", Name: "lookup", Input: map[string]any{"q": "x"}}

	r := NewAgentResult("worker",
		[]Message{NewToolCallMessage(call)},
		[]ToolResultMessage{NewToolResultMessage(call, "found")},
	)

	s.AppendResult(r)
	s.AppendResult(NewAgentResult("worker", []Message{NewAssistantMessage("answer")}, nil))

	history := s.FormatHistory(nil)

	if len(history) != 4 {
		t.Fatalf("expected 4 history messages, got %d", len(history))
	}

	if history[0] != Message(seed) {
		t.Fatalf("expected seed message first")
	}

	if _, ok := history[1].(ToolCallMessage); !ok {
		t.Fatalf("expected tool call message second, got %T", history[1])
	}

	if _, ok := history[2].(ToolResultMessage); !ok {
		t.Fatalf("expected tool result message third, got %T", history[2])
	}
}

func TestStateFormatHistoryCustomFormatter(t *testing.T) {
	s := NewState()
	s.AppendResult(NewAgentResult("worker", []Message{NewAssistantMessage("long answer")}, nil))

	history := s.FormatHistory(func(r *AgentResult) []Message {
		return []Message{NewAssistantMessage(r.AgentName + " responded")}
	})

	if len(history) != 1 {
		t.Fatalf("expected 1 formatted message, got %d", len(history))
	}

	if history[0].(TextMessage).Content != "worker responded" {
		t.Fatalf("formatter not applied: %v", history[0])
	}
}

func TestStateClone(t *testing.T) {
	s := NewState(func(o *StateOptions) {
		o.Messages = []Message{NewUserMessage("hi")}
		o.ThreadID = "thread-1"
	})

	s.Set("k", "v")
	s.AppendResult(NewAgentResult("worker", nil, nil))

	clone := s.Clone()

	clone.Set("k", "changed")
	clone.AppendResult(NewAgentResult("other", nil, nil))

	if v, _ := s.Get("k"); v.(string) != "v" {
		t.Fatalf("clone mutation leaked into original: %v", v)
	}

	if s.ResultCount() != 1 {
		t.Fatalf("clone append leaked into original: %d results", s.ResultCount())
	}

	if clone.ThreadID() != "thread-1" {
		t.Fatalf("expected thread id carried over, got %q", clone.ThreadID())
	}

	if len(clone.Messages()) != 1 {
		t.Fatalf("expected seed messages carried over")
	}
}

func TestStateThreadIDSetOnce(t *testing.T) {
	s := NewState()

	s.SetThreadID("thread-a")
	s.SetThreadID("thread-b")

	if s.ThreadID() != "thread-a" {
		t.Fatalf("thread id was reassigned to %q", s.ThreadID())
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := NewState()

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				s.Set(fmt.Sprintf("k-%d", n), j)
				s.AppendResult(NewAgentResult("worker", nil, nil))
				_ = s.Results()
				_ = s.FormatHistory(nil)
			}
		}(i)
	}

	wg.Wait()

	if s.ResultCount() != 8*50 {
		t.Fatalf("expected %d results, got %d", 8*50, s.ResultCount())
	}
}
