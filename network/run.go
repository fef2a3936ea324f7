package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/agentnetio/agentnet/agent"
	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/stream"
)

var (
	// ErrNoRouter is returned when a network has neither a router nor a
	// default model to build one from.
	ErrNoRouter = errors.New("network has no router configured")

	// ErrNoEligibleAgents is returned when every registered agent is ruled
	// out by its enabled predicate at run start.
	ErrNoEligibleAgents = errors.New("network has no eligible agents")

	// ErrRunConsumed is returned when Execute is called on an already
	// executed run. Runs are single-use.
	ErrRunConsumed = errors.New("network run already consumed")
)

// RunOptions configures a single network run.
type RunOptions struct {
	// State seeds the run with existing conversation state. A fresh empty
	// state is created when nil.
	State *core.State

	// Step overrides the network's step handle for this run.
	Step core.StepHandle

	// Publisher overrides the network's streaming publisher for this run.
	Publisher stream.Publisher
}

// NetworkRun is one single-use execution of a network. It implements
// core.Run, giving tools and routers access to shared state, the agent
// roster and the scheduling stack.
type NetworkRun struct {
	id      string
	network *Network
	input   string
	state   *core.State
	router  Router
	step    core.StepHandle
	sc      *stream.Context

	mu         sync.Mutex
	agents     map[string]*agent.Agent
	agentOrder []string
	stack      []string
	callCount  int
	lastResult *core.AgentResult
	consumed   bool
	checkpoint int
}

// Run creates a run and executes it to completion. The returned run exposes
// the final state; on error it exposes whatever partial state the run
// produced before failing.
func (n *Network) Run(ctx context.Context, input string, optFns ...func(o *RunOptions)) (*NetworkRun, error) {
	run := n.NewRun(input, optFns...)

	if err := run.Execute(ctx); err != nil {
		return run, err
	}

	return run, nil
}

// NewRun creates a single-use run without executing it. Most callers want
// Run instead; NewRun exists for wiring the run into other systems before
// execution starts.
func (n *Network) NewRun(input string, optFns ...func(o *RunOptions)) *NetworkRun {
	opts := RunOptions{
		Step:      n.step,
		Publisher: n.publisher,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.State == nil {
		opts.State = core.NewState()
	}

	if opts.Step == nil {
		opts.Step = core.InlineStep{}
	}

	runID := uuid.NewString()

	router := n.router
	if router == nil && n.defaultModel != nil {
		router = DefaultRouter(n.defaultModel)
	}

	agents, order := n.snapshotAgents()

	return &NetworkRun{
		id:      runID,
		network: n,
		input:   input,
		state:   opts.State,
		router:  router,
		step:    &scopedStep{inner: opts.Step, runID: runID},
		sc: stream.NewContext(opts.Publisher, func(o *stream.ContextOptions) {
			o.RunID = runID
			o.Scope = n.name
			o.Logger = n.logger
		}),
		agents:     agents,
		agentOrder: order,
	}
}

// Execute runs the network loop to completion. A run is single-use; a
// second call returns ErrRunConsumed.
func (r *NetworkRun) Execute(ctx context.Context) error {
	r.mu.Lock()
	if r.consumed {
		r.mu.Unlock()
		return ErrRunConsumed
	}
	r.consumed = true
	r.mu.Unlock()

	logger := r.network.logger

	logger.Info("network.run.start",
		"network", r.network.name,
		"run_id", r.id,
		"agents", len(r.agents),
	)

	r.sc.RunStarted(ctx)

	err := r.loop(ctx)

	switch {
	case err == nil:
		r.sc.RunCompleted(ctx)
		logger.Info("network.run.completed",
			"network", r.network.name,
			"run_id", r.id,
			"calls", r.CallCount(),
		)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		r.sc.RunInterrupted(ctx)
		logger.Warn("network.run.interrupted", "network", r.network.name, "run_id", r.id)
	default:
		r.sc.RunFailed(ctx, err)
		logger.Error("network.run.failed",
			"network", r.network.name,
			"run_id", r.id,
			"error", err.Error(),
		)
	}

	return err
}

// loop drives hydration, routing and the LIFO scheduling stack.
func (r *NetworkRun) loop(ctx context.Context) error {
	if r.router == nil {
		return fmt.Errorf("network %q: %w", r.network.name, ErrNoRouter)
	}

	if err := r.hydrate(ctx); err != nil {
		return err
	}

	r.checkpoint = r.state.ResultCount()
	r.sc = r.sc.WithThread(r.state.ThreadID(), r.state.UserID())

	eligible, err := r.eligibleAgents(ctx)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		return fmt.Errorf("network %q: %w", r.network.name, ErrNoEligibleAgents)
	}

	names, err := r.route(ctx)
	if err != nil {
		return err
	}
	r.push(names)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if r.network.maxCalls > 0 && r.CallCount() >= r.network.maxCalls {
			r.network.logger.Warn("network.cap.reached",
				"network", r.network.name,
				"run_id", r.id,
				"max_calls", r.network.maxCalls,
			)
			break
		}

		name, ok := r.pop()
		if !ok {
			break
		}

		ag, ok := r.resolveAgent(name)
		if !ok {
			return fmt.Errorf("scheduled agent %q is not registered with network %q", name, r.network.name)
		}

		result, err := r.invoke(ctx, ag)
		if err != nil {
			return err
		}

		r.state.AppendResult(result)

		r.mu.Lock()
		r.callCount++
		r.lastResult = result
		r.mu.Unlock()

		names, err := r.route(ctx)
		if err != nil {
			return err
		}
		r.push(names)
	}

	return r.persist(ctx)
}

// hydrate prepares thread identity and prior results from the history store.
func (r *NetworkRun) hydrate(ctx context.Context) error {
	store := r.network.history
	if store == nil {
		return nil
	}

	if r.state.ThreadID() == "" {
		threadID, err := store.CreateThread(ctx, r.state)
		if err != nil {
			return fmt.Errorf("create thread: %w", err)
		}

		r.state.SetThreadID(threadID)
	}

	if r.state.ResultCount() == 0 {
		prior, err := store.Results(ctx, r.state.ThreadID())
		if err != nil {
			return fmt.Errorf("load thread %s: %w", r.state.ThreadID(), err)
		}

		if len(prior) > 0 {
			r.state.SetResults(prior)

			r.network.logger.Debug("network.history.hydrated",
				"network", r.network.name,
				"thread_id", r.state.ThreadID(),
				"results", len(prior),
			)
		}
	}

	return nil
}

// persist appends the results produced by this run to the history store.
func (r *NetworkRun) persist(ctx context.Context) error {
	store := r.network.history
	if store == nil {
		return nil
	}

	delta := r.state.ResultsFrom(r.checkpoint)
	if len(delta) == 0 {
		return nil
	}

	if err := store.AppendResults(ctx, r.state.ThreadID(), delta); err != nil {
		return fmt.Errorf("append results to thread %s: %w", r.state.ThreadID(), err)
	}

	return nil
}

// eligibleAgents filters the run registry through each agent's enabled
// predicate.
func (r *NetworkRun) eligibleAgents(ctx context.Context) ([]*agent.Agent, error) {
	r.mu.Lock()
	order := make([]string, len(r.agentOrder))
	copy(order, r.agentOrder)
	agents := make(map[string]*agent.Agent, len(r.agents))
	for name, ag := range r.agents {
		agents[name] = ag
	}
	r.mu.Unlock()

	eligible := make([]*agent.Agent, 0, len(order))

	for _, name := range order {
		ag := agents[name]

		ok, err := ag.Enabled(ctx, r.state)
		if err != nil {
			return nil, fmt.Errorf("enabled predicate for agent %q: %w", name, err)
		}

		if ok {
			eligible = append(eligible, ag)
		}
	}

	return eligible, nil
}

// route asks the router for the next agent names.
func (r *NetworkRun) route(ctx context.Context) ([]string, error) {
	switch router := r.router.(type) {
	case RouterFunc:
		return r.routeWithFunc(ctx, router)
	case *ModelRouter:
		return r.routeWithModel(ctx, router)
	default:
		return nil, fmt.Errorf("unsupported router type %T", r.router)
	}
}

func (r *NetworkRun) routeWithFunc(ctx context.Context, router RouterFunc) ([]string, error) {
	r.mu.Lock()
	args := &RouterArgs{
		Input:      r.input,
		Network:    r,
		Stack:      stackSnapshot(r.stack),
		CallCount:  r.callCount,
		LastResult: r.lastResult,
	}
	r.mu.Unlock()

	agents, err := router(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	names := make([]string, 0, len(agents))

	for _, ag := range agents {
		if ag == nil {
			continue
		}

		r.registerDynamic(ag)
		names = append(names, ag.Name())
	}

	return names, nil
}

func (r *NetworkRun) routeWithModel(ctx context.Context, router *ModelRouter) ([]string, error) {
	if router.Agent == nil {
		return nil, fmt.Errorf("model router for network %q has no agent", r.network.name)
	}

	result, err := r.invoke(ctx, router.Agent)
	if err != nil {
		return nil, fmt.Errorf("routing agent: %w", err)
	}

	// The routing decision joins the conversation record but does not count
	// against the call cap.
	r.state.AppendResult(result)

	r.mu.Lock()
	r.lastResult = result
	r.mu.Unlock()

	onRoute := router.OnRoute
	if onRoute == nil {
		onRoute = DefaultOnRoute
	}

	names, err := onRoute(ctx, &RouteArgs{Result: result, Input: r.input, Network: r})
	if err != nil {
		return nil, fmt.Errorf("route interpreter: %w", err)
	}

	return names, nil
}

// invoke executes one agent against the shared state. The agent runs with a
// single-shot tool loop so its internal looping cannot take over scheduling.
func (r *NetworkRun) invoke(ctx context.Context, ag *agent.Agent) (*core.AgentResult, error) {
	r.network.logger.Info("network.agent.start",
		"network", r.network.name,
		"run_id", r.id,
		"agent", ag.Name(),
		"call", r.CallCount(),
	)

	child := r.sc.Child(uuid.NewString(), ag.Name())

	result, err := ag.Run(ctx, r.input, func(o *agent.RunOptions) {
		o.State = r.state
		o.Network = r
		o.MaxToolRounds = 0
		o.Step = r.step
		o.Stream = child

		if o.Model == nil {
			o.Model = r.network.defaultModel
		}
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// registerDynamic adds a router-returned agent to the run's private
// registry. Already known names keep their existing registration.
func (r *NetworkRun) registerDynamic(ag *agent.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := ag.Name()
	if _, exists := r.agents[name]; exists {
		return
	}

	r.agents[name] = ag
	r.agentOrder = append(r.agentOrder, name)

	r.network.logger.Debug("network.agent.dynamic",
		"network", r.network.name,
		"run_id", r.id,
		"agent", name,
	)
}

// resolveAgent looks up a scheduled name in the run registry.
func (r *NetworkRun) resolveAgent(name string) (*agent.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ag, ok := r.agents[name]

	return ag, ok
}

// push schedules names onto the LIFO stack. A batch is pushed in reverse so
// the first listed name runs first.
func (r *NetworkRun) push(names []string) {
	if len(names) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(names) - 1; i >= 0; i-- {
		if names[i] == "" {
			continue
		}

		r.stack = append(r.stack, names[i])
	}
}

// pop removes and returns the top of the scheduling stack.
func (r *NetworkRun) pop() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.stack) == 0 {
		return "", false
	}

	name := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]

	return name, true
}

// stackSnapshot copies the stack next-to-run first.
func stackSnapshot(stack []string) []string {
	out := make([]string, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out, stack[i])
	}

	return out
}

// RunID implements core.Run.
func (r *NetworkRun) RunID() string {
	return r.id
}

// NetworkName implements core.Run.
func (r *NetworkRun) NetworkName() string {
	return r.network.name
}

// State implements core.Run.
func (r *NetworkRun) State() *core.State {
	return r.state
}

// AgentInfos implements core.Run. Infos are listed in registration order and
// include dynamically registered agents.
func (r *NetworkRun) AgentInfos() []core.AgentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]core.AgentInfo, 0, len(r.agentOrder))
	for _, name := range r.agentOrder {
		infos = append(infos, r.agents[name].Info())
	}

	return infos
}

// Schedule implements core.Run. Names are pushed onto the scheduling stack;
// the first listed name runs first. Unknown names surface as errors when
// popped.
func (r *NetworkRun) Schedule(names ...string) {
	r.push(names)
}

// CallCount implements core.Run.
func (r *NetworkRun) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.callCount
}

// Results returns the results recorded so far, oldest first.
func (r *NetworkRun) Results() []*core.AgentResult {
	return r.state.Results()
}

// scopedStep prefixes step ids with the run id and a per-run counter so
// delegated operations replay stably across runs.
type scopedStep struct {
	inner core.StepHandle
	runID string
	seq   atomic.Uint64
}

// Run implements core.StepHandle.
func (s *scopedStep) Run(ctx context.Context, id string, fn func(ctx context.Context) (any, error)) (any, error) {
	n := s.seq.Add(1)

	return s.inner.Run(ctx, fmt.Sprintf("%s.%d.%s", s.runID, n, id), fn)
}
