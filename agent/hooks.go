package agent

import (
	"context"

	"github.com/agentnetio/agentnet/core"
)

// Lifecycle carries the optional hooks observed during an agent run. All
// hooks are synchronous and run on the calling goroutine. A hook returning
// an error aborts the run.
type Lifecycle struct {
	// OnStart runs after the prompt and history are assembled, before the
	// first inference. The hook may rewrite Prompt and History in place, or
	// set Stop to skip inference entirely.
	OnStart func(ctx context.Context, hc *StartContext) error

	// OnResponse runs after each inference call, before any tool calls in
	// the response are resolved. The hook may adjust the result in place.
	OnResponse func(ctx context.Context, hc *ResultContext) error

	// OnFinish runs once after the run completes, before the result is
	// returned to the caller.
	OnFinish func(ctx context.Context, hc *ResultContext) error
}

// StartContext is passed to the OnStart hook.
type StartContext struct {
	// Agent is the agent about to run.
	Agent *Agent

	// Network is the surrounding network run, or nil for standalone runs.
	Network core.Run

	// Input is the user input the run was invoked with.
	Input string

	// Prompt holds the assembled prompt messages. The hook may replace or
	// extend it.
	Prompt []core.Message

	// History holds the formatted conversation history. The hook may
	// replace or extend it.
	History []core.Message

	// Stop, when set by the hook, ends the run before inference. The run
	// returns an empty result.
	Stop bool
}

// ResultContext is passed to the OnResponse and OnFinish hooks.
type ResultContext struct {
	// Agent is the agent that produced the result.
	Agent *Agent

	// Network is the surrounding network run, or nil for standalone runs.
	Network core.Run

	// Result is the result under construction. Hooks may modify it in
	// place.
	Result *core.AgentResult
}
