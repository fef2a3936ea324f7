package stream

import "time"

// Event names for the run lifecycle.
const (
	EventRunStarted     = "run.started"
	EventRunCompleted   = "run.completed"
	EventRunFailed      = "run.failed"
	EventRunInterrupted = "run.interrupted"
)

// Event names for the step lifecycle.
const (
	EventStepStarted   = "step.started"
	EventStepCompleted = "step.completed"
)

// Event names for the message part lifecycle.
const (
	EventPartCreated   = "part.created"
	EventPartCompleted = "part.completed"
	EventPartFailed    = "part.failed"
)

// Event names for content deltas.
const (
	EventTextDelta       = "text.delta"
	EventToolArgsDelta   = "tool_call.arguments.delta"
	EventToolOutputDelta = "tool_call.output.delta"
	EventReasoningDelta  = "reasoning.delta"
	EventDataDelta       = "data.delta"
)

// PartKind classifies a streamed message part.
type PartKind string

const (
	PartText       PartKind = "text"
	PartToolCall   PartKind = "tool-call"
	PartToolOutput PartKind = "tool-output"
	PartReasoning  PartKind = "reasoning"
	PartData       PartKind = "data"
	PartFile       PartKind = "file"
)

// Event is one entry on the streaming side-channel. Sequence numbers are
// strictly increasing across a run and any child runs sharing its Sequencer,
// so consumers can totally order events for the whole run tree.
type Event struct {
	Event       string         `json:"event"`
	Sequence    uint64         `json:"sequence"`
	RunID       string         `json:"run_id,omitempty"`
	ParentRunID string         `json:"parent_run_id,omitempty"`
	Scope       string         `json:"scope,omitempty"` // Emitting network or agent name
	ThreadID    string         `json:"thread_id,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	PartID      string         `json:"part_id,omitempty"`
	PartKind    PartKind       `json:"part_kind,omitempty"`
	Delta       string         `json:"delta,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
