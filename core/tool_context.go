package core

import (
	"context"
	"fmt"

	"github.com/agentnetio/agentnet/logging"
)

// ToolContext provides a constrained, auditable surface for tool handlers.
// It exposes the invocation identity, the shared run state and the scheduling
// handle of the surrounding network run without handing tools the full
// orchestration machinery.
type ToolContext struct {
	ctx     context.Context
	callID  string
	agent   AgentInfo
	state   *State
	network Run
	step    StepHandle
	valid   bool

	*loggerAdapter
}

// ToolContextConfig carries the pieces assembled into a ToolContext.
type ToolContextConfig struct {
	Context context.Context
	CallID  string
	Agent   AgentInfo
	State   *State
	Network Run        // nil when the agent runs standalone
	Step    StepHandle // nil defaults to InlineStep
	Logger  logging.Logger
}

// NewToolContext constructs a tool context, substituting safe defaults for
// absent pieces so handlers never observe nils.
func NewToolContext(cfg ToolContextConfig) *ToolContext {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}

	if cfg.State == nil {
		cfg.State = NewState()
	}

	if cfg.Step == nil {
		cfg.Step = InlineStep{}
	}

	return &ToolContext{
		ctx:           cfg.Context,
		callID:        cfg.CallID,
		agent:         cfg.Agent,
		state:         cfg.State,
		network:       cfg.Network,
		step:          cfg.Step,
		valid:         true,
		loggerAdapter: newLoggerAdapter(cfg.Logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// CallID returns the tool call id assigned by the model.
func (tc *ToolContext) CallID() string { return tc.callID }

// Agent returns identifying details of the calling agent.
func (tc *ToolContext) Agent() AgentInfo { return tc.agent }

// AgentName returns the name of the calling agent.
func (tc *ToolContext) AgentName() string { return tc.agent.Name }

// State returns the shared run state.
func (tc *ToolContext) State() *State { return tc.state }

// Network returns the surrounding network run, or nil when the agent was
// invoked standalone. Tools use it to schedule agents or inspect the roster.
func (tc *ToolContext) Network() Run { return tc.network }

// Step returns the step handle for the invocation.
func (tc *ToolContext) Step() StepHandle { return tc.step }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// GetState retrieves the state value stored under key.
func (tc *ToolContext) GetState(key string) (any, bool) {
	return tc.state.Get(key)
}

// SetState stores a state value under key.
func (tc *ToolContext) SetState(key string, value any) {
	tc.state.Set(key, value)

	tc.LogDebug("tool.state.set", "agent", tc.AgentName(), "key", key, "call_id", tc.callID)
}

// Schedule pushes agent names onto the network's pending stack. Returns an
// error when the agent runs outside a network.
func (tc *ToolContext) Schedule(names ...string) error {
	if tc.network == nil {
		return fmt.Errorf("no network run in scope")
	}

	tc.network.Schedule(names...)

	tc.LogInfo("tool.schedule.request", "agent", tc.AgentName(), "scheduled", names, "call_id", tc.callID)

	return nil
}

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if !tc.valid || tc.state == nil || tc.callID == "" {
		return fmt.Errorf("invalid ToolContext")
	}

	return nil
}

// IsValid reports whether Validate would succeed (fast path).
func (tc *ToolContext) IsValid() bool {
	return tc.valid && tc.state != nil && tc.callID != ""
}
