package stream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/agentnetio/agentnet/logging"
)

// Sequencer hands out strictly increasing sequence numbers. One Sequencer is
// shared by a parent run context and all child contexts derived from it.
type Sequencer struct {
	n atomic.Uint64
}

// Next returns the next sequence number, starting at 1.
func (s *Sequencer) Next() uint64 {
	return s.n.Add(1)
}

// Context decorates a Publisher with run identity, thread attribution and
// shared sequencing. All methods are safe on a nil *Context: emission
// silently becomes a no-op, so callers never branch on whether streaming is
// enabled.
type Context struct {
	publisher   Publisher
	seq         *Sequencer
	logger      logging.Logger
	runID       string
	parentRunID string
	scope       string
	threadID    string
	userID      string
}

// ContextOptions configures a new streaming context.
type ContextOptions struct {
	// RunID identifies the run; generated when empty.
	RunID string

	// Scope names the emitting network or agent.
	Scope string

	// ThreadID / UserID enrich every published event when known.
	ThreadID string
	UserID   string

	// Sequencer overrides the fresh per-tree counter. Supply one to stitch
	// externally related runs into a single ordered stream.
	Sequencer *Sequencer

	// Logger receives swallowed publish failures.
	Logger logging.Logger
}

// NewContext constructs a streaming context over the given publisher. A nil
// publisher yields a nil context, which is valid and drops all events.
func NewContext(publisher Publisher, optFns ...func(o *ContextOptions)) *Context {
	if publisher == nil {
		return nil
	}

	opts := ContextOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	if opts.Sequencer == nil {
		opts.Sequencer = &Sequencer{}
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Context{
		publisher: publisher,
		seq:       opts.Sequencer,
		logger:    opts.Logger,
		runID:     opts.RunID,
		scope:     opts.Scope,
		threadID:  opts.ThreadID,
		userID:    opts.UserID,
	}
}

// RunID returns the run id, or empty on a nil context.
func (c *Context) RunID() string {
	if c == nil {
		return ""
	}

	return c.runID
}

// Child derives a context for a nested agent run. The child shares the
// parent's publisher and sequence counter, so events from both interleave in
// one strictly ordered stream, and records the parent run id on every event.
func (c *Context) Child(runID, scope string) *Context {
	if c == nil {
		return nil
	}

	if runID == "" {
		runID = uuid.NewString()
	}

	return &Context{
		publisher:   c.publisher,
		seq:         c.seq,
		logger:      c.logger,
		runID:       runID,
		parentRunID: c.runID,
		scope:       scope,
		threadID:    c.threadID,
		userID:      c.userID,
	}
}

// WithThread returns a copy carrying thread and user attribution, applied to
// all later events. Used once hydration resolves the thread id.
func (c *Context) WithThread(threadID, userID string) *Context {
	if c == nil {
		return nil
	}

	clone := *c
	clone.threadID = threadID
	clone.userID = userID

	return &clone
}

// publish stamps sequence, identity and timestamp onto the event and hands
// it to the publisher. Failures are logged and swallowed: the stream is
// best-effort and never affects the run.
func (c *Context) publish(ctx context.Context, ev Event) {
	if c == nil || c.publisher == nil {
		return
	}

	ev.Sequence = c.seq.Next()
	ev.RunID = c.runID
	ev.ParentRunID = c.parentRunID
	ev.Scope = c.scope
	ev.ThreadID = c.threadID
	ev.UserID = c.userID
	ev.Timestamp = time.Now().UTC()

	if err := c.publisher.Publish(ctx, ev); err != nil {
		c.logger.Warn("stream.publish.failed", "event", ev.Event, "run_id", c.runID, "error", err.Error())
	}
}

// RunStarted emits the run.started lifecycle event.
func (c *Context) RunStarted(ctx context.Context) {
	c.publish(ctx, Event{Event: EventRunStarted})
}

// RunCompleted emits the run.completed lifecycle event.
func (c *Context) RunCompleted(ctx context.Context) {
	c.publish(ctx, Event{Event: EventRunCompleted})
}

// RunFailed emits the run.failed lifecycle event with the failure message.
func (c *Context) RunFailed(ctx context.Context, err error) {
	ev := Event{Event: EventRunFailed}

	if err != nil {
		ev.Data = map[string]any{"error": err.Error()}
	}

	c.publish(ctx, ev)
}

// RunInterrupted emits the run.interrupted lifecycle event.
func (c *Context) RunInterrupted(ctx context.Context) {
	c.publish(ctx, Event{Event: EventRunInterrupted})
}

// StepStarted emits the step.started lifecycle event for a named step.
func (c *Context) StepStarted(ctx context.Context, name string) {
	c.publish(ctx, Event{Event: EventStepStarted, Data: map[string]any{"step": name}})
}

// StepCompleted emits the step.completed lifecycle event for a named step.
func (c *Context) StepCompleted(ctx context.Context, name string) {
	c.publish(ctx, Event{Event: EventStepCompleted, Data: map[string]any{"step": name}})
}

// Part tracks one streamed message part from creation to completion.
// Nil-safe like its parent context.
type Part struct {
	c    *Context
	id   string
	kind PartKind
}

// NewPart emits part.created and returns a handle for the part's deltas and
// terminal event.
func (c *Context) NewPart(ctx context.Context, kind PartKind) *Part {
	if c == nil {
		return nil
	}

	p := &Part{c: c, id: uuid.NewString(), kind: kind}

	c.publish(ctx, Event{Event: EventPartCreated, PartID: p.id, PartKind: kind})

	return p
}

// ID returns the part id, or empty on a nil part.
func (p *Part) ID() string {
	if p == nil {
		return ""
	}

	return p.id
}

// Delta emits the content delta event matching the part's kind.
func (p *Part) Delta(ctx context.Context, delta string) {
	if p == nil || delta == "" {
		return
	}

	p.c.publish(ctx, Event{Event: deltaEvent(p.kind), PartID: p.id, PartKind: p.kind, Delta: delta})
}

// Complete emits part.completed with an optional final payload.
func (p *Part) Complete(ctx context.Context, data map[string]any) {
	if p == nil {
		return
	}

	p.c.publish(ctx, Event{Event: EventPartCompleted, PartID: p.id, PartKind: p.kind, Data: data})
}

// Fail emits part.failed with the failure message.
func (p *Part) Fail(ctx context.Context, err error) {
	if p == nil {
		return
	}

	ev := Event{Event: EventPartFailed, PartID: p.id, PartKind: p.kind}

	if err != nil {
		ev.Data = map[string]any{"error": err.Error()}
	}

	p.c.publish(ctx, ev)
}

// deltaEvent maps a part kind to its content delta event name.
func deltaEvent(kind PartKind) string {
	switch kind {
	case PartToolCall:
		return EventToolArgsDelta
	case PartToolOutput:
		return EventToolOutputDelta
	case PartReasoning:
		return EventReasoningDelta
	case PartData:
		return EventDataDelta
	default:
		return EventTextDelta
	}
}
