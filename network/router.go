package network

import (
	"context"

	"github.com/agentnetio/agentnet/agent"
	"github.com/agentnetio/agentnet/core"
)

// Router decides which agents run next. It is a closed set of two forms: a
// deterministic function (RouterFunc) or a model-backed routing agent
// (ModelRouter). A router returning no agents ends the run.
type Router interface {
	isRouter()
}

// RouterArgs carries the run context a function router decides on.
type RouterArgs struct {
	// Input is the user input the network run was invoked with.
	Input string

	// Network is the executing run.
	Network *NetworkRun

	// Stack holds the pending agent names, next-to-run first.
	Stack []string

	// CallCount is the number of agent invocations performed so far.
	CallCount int

	// LastResult is the most recent agent result, nil before the first
	// invocation.
	LastResult *core.AgentResult
}

// RouterFunc routes deterministically. Returning an empty or nil slice stops
// the run. Returned agents not registered with the network are added to the
// run's private registry.
type RouterFunc func(ctx context.Context, args *RouterArgs) ([]*agent.Agent, error)

// isRouter implements the Router interface.
func (RouterFunc) isRouter() {}

// RouteArgs carries the routing agent's result to the OnRoute interpreter.
type RouteArgs struct {
	// Result is the routing agent's own result.
	Result *core.AgentResult

	// Input is the user input the network run was invoked with.
	Input string

	// Network is the executing run.
	Network *NetworkRun
}

// ModelRouter routes by running a model-backed agent and interpreting its
// result into agent names. The routing agent's result is appended to shared
// state like any other invocation, making the routing decision part of the
// conversation record.
type ModelRouter struct {
	// Agent is the routing agent, typically forced or steered toward the
	// select_agent tool.
	Agent *agent.Agent

	// OnRoute interprets the routing agent's result into the names of the
	// agents to run next. Nil or empty means stop. When unset,
	// DefaultOnRoute is used.
	OnRoute func(ctx context.Context, args *RouteArgs) ([]string, error)
}

// isRouter implements the Router interface.
func (*ModelRouter) isRouter() {}
