package core

// AgentInfo carries identifying details about an agent as shown to tools,
// routers and lifecycle hooks. Description doubles as the agent's pitch when
// a routing model chooses between candidates.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Run is the live handle onto an in-flight network run. Tools, hooks and
// prompt functions receive it to inspect shared state and to influence
// scheduling without importing the orchestration layer.
type Run interface {
	// RunID returns the unique id assigned to this run.
	RunID() string

	// NetworkName returns the name of the owning network.
	NetworkName() string

	// State returns the shared state for the run.
	State() *State

	// AgentInfos lists the agents currently registered with the run,
	// including any added after the run started.
	AgentInfos() []AgentInfo

	// Schedule pushes agent names onto the pending execution stack. The
	// first name runs next; unknown names surface as errors when popped.
	Schedule(names ...string)

	// CallCount reports how many agent executions the run has performed or
	// started so far.
	CallCount() int
}
