package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/logging"
	"github.com/agentnetio/agentnet/model"
	"github.com/agentnetio/agentnet/tool"
)

// ToolCatalog supplies tools resolved at runtime, such as the tool list of a
// remote MCP server. Catalogs are resolved once on the agent's first run and
// the returned tools are registered alongside the static ones.
type ToolCatalog interface {
	// Tools returns the tools the catalog currently offers.
	Tools(ctx context.Context) ([]tool.Tool, error)
}

// Options configures an Agent.
type Options struct {
	// Description is surfaced to routers so they can pick between agents.
	Description string

	// System is the system prompt, static or dynamically provided. When
	// unset a minimal default derived from the agent name is used.
	System System

	// Assistant optionally seeds the prompt with an assistant message after
	// the user input, to steer the shape of the completion.
	Assistant string

	// Model is the inference model. An agent without a model can still run
	// inside a network that supplies a default.
	Model model.Model

	// Tools are registered at construction time, in order.
	Tools []tool.Tool

	// Catalogs supply additional tools resolved on first run.
	Catalogs []ToolCatalog

	// Enabled gates the agent's eligibility for network scheduling against
	// the current state. Nil means always eligible.
	Enabled func(ctx context.Context, state *core.State) (bool, error)

	// ToolChoice constrains how the model may use the registered tools.
	// The zero value lets the model decide.
	ToolChoice model.ToolChoice

	// MaxToolRounds bounds how many times the agent feeds tool results back
	// into the model within a single run. At the default of zero the agent
	// performs one inference and resolves its tool calls without
	// re-inferring.
	MaxToolRounds int

	// Lifecycle holds the optional run hooks.
	Lifecycle Lifecycle

	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger logging.Logger
}

// Agent is a single model-backed worker. It assembles a prompt from its
// system text and the shared conversation history, calls its model, resolves
// any tool calls the model makes, and returns the collected output as an
// AgentResult. Agents are safe for concurrent use once constructed.
type Agent struct {
	name          string
	description   string
	system        System
	assistant     string
	model         model.Model
	toolChoice    model.ToolChoice
	maxToolRounds int
	lifecycle     Lifecycle
	enabled       func(ctx context.Context, state *core.State) (bool, error)
	logger        logging.Logger

	catalogs    []ToolCatalog
	catalogMu   sync.Mutex
	catalogDone bool

	mu        sync.RWMutex
	tools     map[string]tool.Tool
	toolOrder []string
}

// New creates an agent with the given name.
func New(name string, optFns ...func(o *Options)) *Agent {
	opts := Options{
		System: NewSystemFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	a := &Agent{
		name:          name,
		description:   opts.Description,
		system:        opts.System,
		assistant:     opts.Assistant,
		model:         opts.Model,
		toolChoice:    opts.ToolChoice,
		maxToolRounds: opts.MaxToolRounds,
		lifecycle:     opts.Lifecycle,
		enabled:       opts.Enabled,
		logger:        opts.Logger,
		catalogs:      opts.Catalogs,
		tools:         make(map[string]tool.Tool),
	}

	a.RegisterTools(opts.Tools)

	return a
}

// Name returns the agent's unique name.
func (a *Agent) Name() string {
	return a.name
}

// Description returns the human-readable description.
func (a *Agent) Description() string {
	return a.description
}

// Info returns the agent's identity as surfaced to routers and tools.
func (a *Agent) Info() core.AgentInfo {
	return core.AgentInfo{Name: a.name, Description: a.description}
}

// Model returns the agent's own model, which may be nil.
func (a *Agent) Model() model.Model {
	return a.model
}

// Enabled reports whether the agent is eligible for scheduling against the
// given state. Agents without a predicate are always eligible.
func (a *Agent) Enabled(ctx context.Context, state *core.State) (bool, error) {
	if a.enabled == nil {
		return true, nil
	}

	return a.enabled(ctx, state)
}

// RegisterTool adds a tool to the agent. Registering a tool under an already
// registered name replaces the previous tool and keeps its position.
func (a *Agent) RegisterTool(t tool.Tool) {
	if t == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	name := t.Name()
	if _, exists := a.tools[name]; !exists {
		a.toolOrder = append(a.toolOrder, name)
	}

	a.tools[name] = t

	a.logger.Debug("agent.tool.registered", "agent", a.name, "tool", name)
}

// RegisterTools adds multiple tools to the agent.
func (a *Agent) RegisterTools(tools []tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// UnregisterTool removes a tool by name.
func (a *Agent) UnregisterTool(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.tools[name]; !exists {
		return
	}

	delete(a.tools, name)

	for i, n := range a.toolOrder {
		if n == name {
			a.toolOrder = append(a.toolOrder[:i], a.toolOrder[i+1:]...)
			break
		}
	}
}

// HasTool reports whether a tool with the given name is registered.
func (a *Agent) HasTool(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.tools[name]

	return exists
}

// GetTool returns the tool with the given name.
func (a *Agent) GetTool(name string) (tool.Tool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	t, exists := a.tools[name]

	return t, exists
}

// ListTools returns the registered tools in registration order.
func (a *Agent) ListTools() []tool.Tool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	tools := make([]tool.Tool, 0, len(a.toolOrder))
	for _, name := range a.toolOrder {
		tools = append(tools, a.tools[name])
	}

	return tools
}

// toolDefinitions converts the registered tools into model tool definitions,
// in registration order.
func (a *Agent) toolDefinitions() []model.ToolDefinition {
	tools := a.ListTools()
	if len(tools) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return defs
}

// ensureCatalogTools resolves the configured tool catalogs and registers
// their tools. Resolution happens once per agent; a failed attempt is
// retried on the next run.
func (a *Agent) ensureCatalogTools(ctx context.Context) error {
	if len(a.catalogs) == 0 {
		return nil
	}

	a.catalogMu.Lock()
	defer a.catalogMu.Unlock()

	if a.catalogDone {
		return nil
	}

	for _, catalog := range a.catalogs {
		tools, err := catalog.Tools(ctx)
		if err != nil {
			return fmt.Errorf("resolve tool catalog for agent %q: %w", a.name, err)
		}

		a.RegisterTools(tools)
	}

	a.catalogDone = true

	return nil
}
