package network

import (
	"sync"

	"github.com/agentnetio/agentnet/agent"
	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/logging"
	"github.com/agentnetio/agentnet/model"
	"github.com/agentnetio/agentnet/stream"
)

// Options configures a Network.
type Options struct {
	// Description is a human-readable summary of what the network does.
	Description string

	// Agents are the workers available for scheduling, in registration
	// order.
	Agents []*agent.Agent

	// Router decides which agents run. When nil, a model-backed default
	// router built on DefaultModel is used; a network with neither fails at
	// run start.
	Router Router

	// DefaultModel is the fallback for agents without a model of their own
	// and powers the default router.
	DefaultModel model.Model

	// MaxCalls caps the number of agent invocations per run. Zero means
	// unbounded.
	MaxCalls int

	// History persists results across runs keyed by thread id. Nil disables
	// persistence.
	History core.HistoryStore

	// Step wraps inference and tool calls for durable execution. Defaults
	// to inline execution.
	Step core.StepHandle

	// Publisher receives streaming events for runs of this network. Nil
	// disables streaming.
	Publisher stream.Publisher

	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger logging.Logger
}

// Network schedules a set of agents under a router against shared state.
// Construction is cheap; each call to Run creates an independent, single-use
// NetworkRun.
type Network struct {
	name         string
	description  string
	router       Router
	defaultModel model.Model
	maxCalls     int
	history      core.HistoryStore
	step         core.StepHandle
	publisher    stream.Publisher
	logger       logging.Logger

	mu         sync.RWMutex
	agents     map[string]*agent.Agent
	agentOrder []string
}

// New creates a network with the given name.
func New(name string, optFns ...func(o *Options)) *Network {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Step == nil {
		opts.Step = core.InlineStep{}
	}

	n := &Network{
		name:         name,
		description:  opts.Description,
		router:       opts.Router,
		defaultModel: opts.DefaultModel,
		maxCalls:     opts.MaxCalls,
		history:      opts.History,
		step:         opts.Step,
		publisher:    opts.Publisher,
		logger:       opts.Logger,
		agents:       make(map[string]*agent.Agent),
	}

	for _, ag := range opts.Agents {
		n.RegisterAgent(ag)
	}

	return n
}

// Name returns the network name.
func (n *Network) Name() string {
	return n.name
}

// Description returns the human-readable description.
func (n *Network) Description() string {
	return n.description
}

// RegisterAgent adds an agent to the network. Registering under an already
// known name replaces the previous agent and keeps its position.
func (n *Network) RegisterAgent(ag *agent.Agent) {
	if ag == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	name := ag.Name()
	if _, exists := n.agents[name]; !exists {
		n.agentOrder = append(n.agentOrder, name)
	}

	n.agents[name] = ag

	n.logger.Debug("network.agent.registered", "network", n.name, "agent", name)
}

// GetAgent returns the registered agent with the given name.
func (n *Network) GetAgent(name string) (*agent.Agent, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ag, exists := n.agents[name]

	return ag, exists
}

// Agents returns the registered agents in registration order.
func (n *Network) Agents() []*agent.Agent {
	n.mu.RLock()
	defer n.mu.RUnlock()

	agents := make([]*agent.Agent, 0, len(n.agentOrder))
	for _, name := range n.agentOrder {
		agents = append(agents, n.agents[name])
	}

	return agents
}

// snapshotAgents copies the registry for a run's private use.
func (n *Network) snapshotAgents() (map[string]*agent.Agent, []string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	agents := make(map[string]*agent.Agent, len(n.agents))
	order := make([]string, len(n.agentOrder))

	for name, ag := range n.agents {
		agents[name] = ag
	}
	copy(order, n.agentOrder)

	return agents, order
}
