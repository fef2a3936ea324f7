package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// collectPublisher records events synchronously for assertions.
type collectPublisher struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (p *collectPublisher) Publish(_ context.Context, ev Event) error {
	if p.fail {
		return errors.New("sink unavailable")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, ev)

	return nil
}

func (p *collectPublisher) all() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Event, len(p.events))
	copy(out, p.events)

	return out
}

func TestContextLifecycleEvents(t *testing.T) {
	pub := &collectPublisher{}
	ctx := context.Background()

	sc := NewContext(pub, func(o *ContextOptions) {
		o.RunID = "run-1"
		o.Scope = "support"
		o.ThreadID = "thread-1"
		o.UserID = "user-1"
	})

	sc.RunStarted(ctx)

	part := sc.NewPart(ctx, PartText)
	part.Delta(ctx, "hel")
	part.Delta(ctx, "lo")
	part.Complete(ctx, map[string]any{"content": "hello"})

	sc.RunCompleted(ctx)

	events := pub.all()
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}

	names := []string{
		EventRunStarted, EventPartCreated, EventTextDelta,
		EventTextDelta, EventPartCompleted, EventRunCompleted,
	}

	for i, want := range names {
		if events[i].Event != want {
			t.Fatalf("event %d: got %s, want %s", i, events[i].Event, want)
		}

		if events[i].ThreadID != "thread-1" || events[i].UserID != "user-1" {
			t.Fatalf("event %d missing thread/user enrichment: %+v", i, events[i])
		}

		if events[i].RunID != "run-1" || events[i].Scope != "support" {
			t.Fatalf("event %d missing run identity: %+v", i, events[i])
		}
	}

	if events[2].Delta != "hel" || events[3].Delta != "lo" {
		t.Fatalf("unexpected deltas %q %q", events[2].Delta, events[3].Delta)
	}

	if events[1].PartID == "" || events[1].PartID != events[4].PartID {
		t.Fatalf("part id not stable across lifecycle")
	}
}

func TestSequenceSharedAcrossChildren(t *testing.T) {
	pub := &collectPublisher{}
	ctx := context.Background()

	parent := NewContext(pub, func(o *ContextOptions) {
		o.RunID = "parent"
		o.Scope = "net"
	})

	child := parent.Child("child", "worker")

	parent.RunStarted(ctx)
	child.RunStarted(ctx)
	child.RunCompleted(ctx)
	parent.RunCompleted(ctx)

	events := pub.all()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	var last uint64

	for i, ev := range events {
		if ev.Sequence <= last {
			t.Fatalf("sequence not strictly increasing at %d: %d after %d", i, ev.Sequence, last)
		}

		last = ev.Sequence
	}

	if events[1].ParentRunID != "parent" || events[1].RunID != "child" {
		t.Fatalf("child identity wrong: %+v", events[1])
	}

	if events[1].Scope != "worker" {
		t.Fatalf("child scope wrong: %+v", events[1])
	}
}

func TestPublishFailureSwallowed(t *testing.T) {
	sc := NewContext(&collectPublisher{fail: true}, func(o *ContextOptions) {
		o.RunID = "run-1"
	})

	// Must not panic or surface the error.
	sc.RunStarted(context.Background())
	sc.RunFailed(context.Background(), errors.New("boom"))
}

func TestNilContextIsSafe(t *testing.T) {
	var sc *Context

	ctx := context.Background()

	sc.RunStarted(ctx)
	sc.RunCompleted(ctx)
	sc.StepStarted(ctx, "model")

	part := sc.NewPart(ctx, PartText)
	part.Delta(ctx, "ignored")
	part.Complete(ctx, nil)
	part.Fail(ctx, errors.New("ignored"))

	if sc.RunID() != "" {
		t.Fatalf("nil context should have empty run id")
	}

	if sc.Child("x", "y") != nil {
		t.Fatalf("nil context child should be nil")
	}
}

func TestNewContextNilPublisher(t *testing.T) {
	if NewContext(nil) != nil {
		t.Fatalf("nil publisher should yield nil context")
	}
}

func TestChannelPublisher(t *testing.T) {
	pub := NewChannelPublisher(4)

	if err := pub.Publish(context.Background(), Event{Event: EventRunStarted}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	pub.Close()

	var got []Event
	for ev := range pub.Events() {
		got = append(got, ev)
	}

	if len(got) != 1 || got[0].Event != EventRunStarted {
		t.Fatalf("unexpected events %v", got)
	}

	if err := pub.Publish(context.Background(), Event{Event: EventRunCompleted}); err == nil {
		t.Fatalf("expected error after close")
	}
}

func TestWithThreadEnrichment(t *testing.T) {
	pub := &collectPublisher{}

	sc := NewContext(pub, func(o *ContextOptions) { o.RunID = "run-1" })
	sc.RunStarted(context.Background())

	enriched := sc.WithThread("thread-9", "user-9")
	enriched.RunCompleted(context.Background())

	events := pub.all()

	if events[0].ThreadID != "" {
		t.Fatalf("pre-hydration event should lack thread id")
	}

	if events[1].ThreadID != "thread-9" || events[1].UserID != "user-9" {
		t.Fatalf("enrichment missing: %+v", events[1])
	}

	if events[1].Sequence != events[0].Sequence+1 {
		t.Fatalf("WithThread must keep the sequencer: %d then %d", events[0].Sequence, events[1].Sequence)
	}
}
