package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentnetio/agentnet/agent"
	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/model"
	"github.com/agentnetio/agentnet/stream"
	"github.com/agentnetio/agentnet/tool"
)

// Interface compliance (compile-time assertion)
var _ core.Run = (*NetworkRun)(nil)

// textAgent builds an agent whose mock model answers with the given text.
func textAgent(name, text string) (*agent.Agent, *model.Mock) {
	mock := model.NewMock(name + "-model")
	mock.EnqueueText(text)

	ag := agent.New(name, func(o *agent.Options) {
		o.Description = "Answers with " + text
		o.Model = mock
	})

	return ag, mock
}

// onceRouter returns the given agents on the first evaluation and stops
// afterwards.
func onceRouter(agents ...*agent.Agent) RouterFunc {
	var done bool

	return func(_ context.Context, _ *RouterArgs) ([]*agent.Agent, error) {
		if done {
			return nil, nil
		}
		done = true

		return agents, nil
	}
}

// -------------------- Routing Tests --------------------

func TestNetwork_Run_RouterReturnsNothing(t *testing.T) {
	worker, mock := textAgent("Worker", "hi")

	n := New("idle", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = RouterFunc(func(_ context.Context, _ *RouterArgs) ([]*agent.Agent, error) {
			return nil, nil
		})
	})

	run, err := n.Run(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, 0, run.State().ResultCount())
	assert.Equal(t, 0, run.CallCount())
	assert.Empty(t, mock.Requests())
}

func TestNetwork_Run_SingleAgent(t *testing.T) {
	worker, _ := textAgent("Worker", "done")

	n := New("solo", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = onceRouter(worker)
	})

	run, err := n.Run(context.Background(), "work")
	require.NoError(t, err)

	results := run.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "Worker", results[0].AgentName)
	assert.Equal(t, "done", results[0].TextOutput())
	assert.Equal(t, 1, run.CallCount())
}

func TestNetwork_Run_ResultsMatchInvocationOrder(t *testing.T) {
	alpha, _ := textAgent("Alpha", "a")
	beta, _ := textAgent("Beta", "b")

	sequence := []*agent.Agent{alpha, beta, alpha}
	var step int

	n := New("pipeline", func(o *Options) {
		o.Agents = []*agent.Agent{alpha, beta}
		o.Router = RouterFunc(func(_ context.Context, _ *RouterArgs) ([]*agent.Agent, error) {
			if step >= len(sequence) {
				return nil, nil
			}

			next := sequence[step]
			step++

			return []*agent.Agent{next}, nil
		})
	})

	run, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	results := run.Results()
	require.Len(t, results, 3)
	assert.Equal(t, "Alpha", results[0].AgentName)
	assert.Equal(t, "Beta", results[1].AgentName)
	assert.Equal(t, "Alpha", results[2].AgentName)
	assert.Equal(t, 3, run.CallCount())
}

func TestNetwork_Run_BatchRunsFirstListedFirst(t *testing.T) {
	alpha, _ := textAgent("Alpha", "a")
	beta, _ := textAgent("Beta", "b")

	n := New("batch", func(o *Options) {
		o.Agents = []*agent.Agent{alpha, beta}
		o.Router = onceRouter(alpha, beta)
	})

	run, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	results := run.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "Alpha", results[0].AgentName)
	assert.Equal(t, "Beta", results[1].AgentName)
}

func TestNetwork_Run_CallCap(t *testing.T) {
	worker, mock := textAgent("Worker", "again")
	for i := 0; i < 10; i++ {
		mock.EnqueueText("again")
	}

	n := New("capped", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = RouterFunc(func(_ context.Context, _ *RouterArgs) ([]*agent.Agent, error) {
			return []*agent.Agent{worker}, nil
		})
		o.MaxCalls = 3
	})

	run, err := n.Run(context.Background(), "loop forever")
	require.NoError(t, err)

	assert.Equal(t, 3, run.CallCount())
	assert.Len(t, run.Results(), 3)
}

func TestNetwork_Run_RouterArgs(t *testing.T) {
	worker, _ := textAgent("Worker", "done")

	var calls []*RouterArgs

	n := New("inspect", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = RouterFunc(func(_ context.Context, args *RouterArgs) ([]*agent.Agent, error) {
			calls = append(calls, args)

			if args.CallCount == 0 {
				return []*agent.Agent{worker}, nil
			}

			return nil, nil
		})
	})

	_, err := n.Run(context.Background(), "inspect me")
	require.NoError(t, err)

	require.Len(t, calls, 2)

	first, second := calls[0], calls[1]

	assert.Equal(t, "inspect me", first.Input)
	assert.Zero(t, first.CallCount)
	assert.Nil(t, first.LastResult)
	assert.Empty(t, first.Stack)

	assert.Equal(t, 1, second.CallCount)
	require.NotNil(t, second.LastResult)
	assert.Equal(t, "Worker", second.LastResult.AgentName)
}

func TestNetwork_Run_RouterErrorFatal(t *testing.T) {
	worker, _ := textAgent("Worker", "never")

	n := New("broken", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = RouterFunc(func(_ context.Context, _ *RouterArgs) ([]*agent.Agent, error) {
			return nil, errors.New("routing table corrupted")
		})
	})

	_, err := n.Run(context.Background(), "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routing table corrupted")
}

func TestNetwork_Run_DynamicRegistration(t *testing.T) {
	known, _ := textAgent("Known", "k")
	surprise, _ := textAgent("Surprise", "s")

	n := New("dynamic", func(o *Options) {
		o.Agents = []*agent.Agent{known}
		o.Router = onceRouter(surprise)
	})

	run, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	results := run.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "Surprise", results[0].AgentName)

	infos := run.AgentInfos()
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"Known", "Surprise"}, names)

	// The network itself does not learn run-private agents.
	_, exists := n.GetAgent("Surprise")
	assert.False(t, exists)
}

// -------------------- Configuration Error Tests --------------------

func TestNetwork_Run_NoRouter(t *testing.T) {
	worker, _ := textAgent("Worker", "w")

	n := New("unrouted", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
	})

	_, err := n.Run(context.Background(), "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRouter)
}

func TestNetwork_Run_NoEligibleAgents(t *testing.T) {
	mock := model.NewMock("m")

	disabled := agent.New("Disabled", func(o *agent.Options) {
		o.Model = mock
		o.Enabled = func(_ context.Context, _ *core.State) (bool, error) {
			return false, nil
		}
	})

	n := New("empty", func(o *Options) {
		o.Agents = []*agent.Agent{disabled}
		o.Router = onceRouter(disabled)
	})

	_, err := n.Run(context.Background(), "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEligibleAgents)
}

func TestNetwork_Run_EnabledPredicateGates(t *testing.T) {
	mock := model.NewMock("m")
	mock.EnqueueText("ran")

	gated := agent.New("Gated", func(o *agent.Options) {
		o.Model = mock
		o.Enabled = func(_ context.Context, state *core.State) (bool, error) {
			ready, _ := state.Get("ready")

			return ready == true, nil
		}
	})

	n := New("gate", func(o *Options) {
		o.Agents = []*agent.Agent{gated}
		o.Router = onceRouter(gated)
	})

	seeded := core.NewState()
	seeded.Set("ready", true)

	run, err := n.Run(context.Background(), "go", func(o *RunOptions) {
		o.State = seeded
	})
	require.NoError(t, err)
	assert.Len(t, run.Results(), 1)
}

func TestNetwork_Run_UnknownScheduledName(t *testing.T) {
	worker, _ := textAgent("Worker", "w")

	n := New("ghostly", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = RouterFunc(func(_ context.Context, _ *RouterArgs) ([]*agent.Agent, error) {
			return nil, nil
		})
	})

	run := n.NewRun("go")
	run.Schedule("ghost")

	err := run.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ghost"`)
	assert.Contains(t, err.Error(), "not registered")
}

func TestNetwork_Run_SingleUse(t *testing.T) {
	worker, _ := textAgent("Worker", "w")

	n := New("once", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = onceRouter(worker)
	})

	run := n.NewRun("go")
	require.NoError(t, run.Execute(context.Background()))

	err := run.Execute(context.Background())
	assert.ErrorIs(t, err, ErrRunConsumed)
}

// -------------------- Agent Execution Tests --------------------

func TestNetwork_Run_DefaultModelFallback(t *testing.T) {
	shared := model.NewMock("shared")
	shared.EnqueueText("from shared model")

	bare := agent.New("Bare")

	n := New("fallback", func(o *Options) {
		o.Agents = []*agent.Agent{bare}
		o.Router = onceRouter(bare)
		o.DefaultModel = shared
	})

	run, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	results := run.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "from shared model", results[0].TextOutput())
	assert.Len(t, shared.Requests(), 1)
}

func TestNetwork_Run_AgentsRunSingleShot(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	ping := tool.New("ping", "Ping", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return "pong", nil
	})

	mock := model.NewMock("looper-model")
	mock.EnqueueToolCall("ping", map[string]any{})
	mock.EnqueueText("should never be requested")

	looper := agent.New("Looper", func(o *agent.Options) {
		o.Model = mock
		o.Tools = []tool.Tool{ping}
		o.MaxToolRounds = 5
	})

	n := New("strict", func(o *Options) {
		o.Agents = []*agent.Agent{looper}
		o.Router = onceRouter(looper)
	})

	run, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	// Under network scheduling the agent gets one inference pass; its own
	// round budget does not apply.
	assert.Len(t, mock.Requests(), 1)

	results := run.Results()
	require.Len(t, results, 1)
	require.Len(t, results[0].ToolCalls, 1)
	assert.Equal(t, "pong", results[0].ToolCalls[0].Content)
}

func TestNetwork_Run_AgentErrorFatal(t *testing.T) {
	mock := model.NewMock("m")
	mock.EnqueueError(errors.New("provider down"))

	worker := agent.New("Worker", func(o *agent.Options) {
		o.Model = mock
	})

	n := New("fragile", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = onceRouter(worker)
	})

	run, err := n.Run(context.Background(), "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
	assert.Equal(t, 0, run.State().ResultCount())
}

func TestNetwork_Run_ScheduleFromTool(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	handoff := tool.New("handoff", "Schedule the finisher", params, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		if err := tc.Schedule("Finisher"); err != nil {
			return nil, err
		}

		return "scheduled", nil
	})

	starterMock := model.NewMock("starter-model")
	starterMock.EnqueueToolCall("handoff", map[string]any{})

	starter := agent.New("Starter", func(o *agent.Options) {
		o.Model = starterMock
		o.Tools = []tool.Tool{handoff}
	})

	finisher, _ := textAgent("Finisher", "finished")

	n := New("relay", func(o *Options) {
		o.Agents = []*agent.Agent{starter, finisher}
		o.Router = onceRouter(starter)
	})

	run, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	results := run.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "Starter", results[0].AgentName)
	assert.Equal(t, "Finisher", results[1].AgentName)
	assert.Equal(t, 2, run.CallCount())
}

func TestNetwork_Run_SharedStateAcrossAgents(t *testing.T) {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	writer := tool.New("remember", "Record a fact", params, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		tc.SetState("fact", "42")

		return "stored", nil
	})

	writerMock := model.NewMock("writer-model")
	writerMock.EnqueueToolCall("remember", map[string]any{})

	first := agent.New("First", func(o *agent.Options) {
		o.Model = writerMock
		o.Tools = []tool.Tool{writer}
	})

	second, _ := textAgent("Second", "read it")

	n := New("shared", func(o *Options) {
		o.Agents = []*agent.Agent{first, second}
		o.Router = onceRouter(first, second)
	})

	run, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	v, ok := run.State().Get("fact")
	assert.True(t, ok)
	assert.Equal(t, "42", v)
}

// -------------------- Model Router Tests --------------------

func TestNetwork_Run_DefaultModelRouter(t *testing.T) {
	workerMock := model.NewMock("worker-model")
	workerMock.EnqueueText("task handled")

	worker := agent.New("Worker", func(o *agent.Options) {
		o.Description = "Handles tasks"
		o.Model = workerMock
	})

	routerMock := model.NewMock("router-model")
	routerMock.EnqueueToolCall(SelectAgentToolName, map[string]any{"agent": "Worker"})
	routerMock.EnqueueText("All done.")

	n := New("routed", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.DefaultModel = routerMock
	})

	run, err := n.Run(context.Background(), "handle my task")
	require.NoError(t, err)

	// routing decision, worker result, closing routing reply
	results := run.Results()
	require.Len(t, results, 3)
	assert.Equal(t, "routing_agent", results[0].AgentName)
	assert.Equal(t, "Worker", results[1].AgentName)
	assert.Equal(t, "routing_agent", results[2].AgentName)

	// Only the worker invocation counts against the cap.
	assert.Equal(t, 1, run.CallCount())

	// The routing prompt enumerates the roster.
	reqs := routerMock.Requests()
	require.NotEmpty(t, reqs)
	system, ok := reqs[0].Messages[0].(core.TextMessage)
	require.True(t, ok)
	assert.Contains(t, system.Content, "Worker: Handles tasks")
}

func TestNetwork_Run_ModelRouterUnknownName(t *testing.T) {
	worker, _ := textAgent("Worker", "w")

	routerMock := model.NewMock("router-model")
	routerMock.EnqueueToolCall(SelectAgentToolName, map[string]any{"agent": "Phantom"})

	n := New("confused", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = DefaultRouter(routerMock)
	})

	_, err := n.Run(context.Background(), "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Phantom"`)
}

func TestDefaultOnRoute(t *testing.T) {
	pick := core.NewToolCallMessage(core.ToolCall{
		ID:    "call_1",
		Name:  SelectAgentToolName,
		Input: map[string]any{"agent": "Researcher"},
	})

	result := core.NewAgentResult("routing_agent", []core.Message{pick}, nil)

	names, err := DefaultOnRoute(context.Background(), &RouteArgs{Result: result})
	require.NoError(t, err)
	assert.Equal(t, []string{"Researcher"}, names)

	// Text-only result means stop.
	textOnly := core.NewAgentResult("routing_agent", []core.Message{
		core.NewAssistantMessage("we are done here"),
	}, nil)

	names, err = DefaultOnRoute(context.Background(), &RouteArgs{Result: textOnly})
	require.NoError(t, err)
	assert.Nil(t, names)

	// A selection without a name is a router misconfiguration.
	empty := core.NewToolCallMessage(core.ToolCall{
		ID:    "call_2",
		Name:  SelectAgentToolName,
		Input: map[string]any{},
	})

	badResult := core.NewAgentResult("routing_agent", []core.Message{empty}, nil)

	_, err = DefaultOnRoute(context.Background(), &RouteArgs{Result: badResult})
	assert.Error(t, err)
}

// -------------------- History Store Tests --------------------

type fakeHistory struct {
	mu       sync.Mutex
	threads  map[string][]*core.AgentResult
	created  int
	appended [][]*core.AgentResult
	failNext error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{threads: make(map[string][]*core.AgentResult)}
}

func (h *fakeHistory) CreateThread(_ context.Context, _ *core.State) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.created++

	return fmt.Sprintf("thread-%d", h.created), nil
}

func (h *fakeHistory) Results(_ context.Context, threadID string) ([]*core.AgentResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.threads[threadID], nil
}

func (h *fakeHistory) AppendResults(_ context.Context, threadID string, results []*core.AgentResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failNext != nil {
		return h.failNext
	}

	h.threads[threadID] = append(h.threads[threadID], results...)
	h.appended = append(h.appended, results)

	return nil
}

func TestNetwork_Run_CreatesThread(t *testing.T) {
	worker, _ := textAgent("Worker", "w")
	store := newFakeHistory()

	n := New("tracked", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = onceRouter(worker)
		o.History = store
	})

	run, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	assert.Equal(t, "thread-1", run.State().ThreadID())
	require.Len(t, store.appended, 1)
	require.Len(t, store.appended[0], 1)
	assert.Equal(t, "Worker", store.appended[0][0].AgentName)
}

func TestNetwork_Run_HydratesAndAppendsDelta(t *testing.T) {
	worker, _ := textAgent("Worker", "new answer")
	store := newFakeHistory()

	prior := core.NewAgentResult("Earlier", []core.Message{
		core.NewAssistantMessage("old answer"),
	}, nil)
	store.threads["thread-9"] = []*core.AgentResult{prior}

	n := New("resumed", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = onceRouter(worker)
		o.History = store
	})

	seeded := core.NewState(func(o *core.StateOptions) {
		o.ThreadID = "thread-9"
	})

	run, err := n.Run(context.Background(), "continue", func(o *RunOptions) {
		o.State = seeded
	})
	require.NoError(t, err)

	// Hydrated prior result plus this run's result.
	results := run.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "Earlier", results[0].AgentName)
	assert.Equal(t, "Worker", results[1].AgentName)

	// Only the delta is appended, never the hydrated history.
	require.Len(t, store.appended, 1)
	require.Len(t, store.appended[0], 1)
	assert.Equal(t, "Worker", store.appended[0][0].AgentName)

	assert.Len(t, store.threads["thread-9"], 2)
}

func TestNetwork_Run_PersistFailureSurfaces(t *testing.T) {
	worker, _ := textAgent("Worker", "w")
	store := newFakeHistory()
	store.failNext = errors.New("disk full")

	n := New("unlucky", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = onceRouter(worker)
		o.History = store
	})

	_, err := n.Run(context.Background(), "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

// -------------------- Streaming Tests --------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []stream.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev stream.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, ev)

	return nil
}

func TestNetwork_Run_StreamsAcrossRuns(t *testing.T) {
	pub := &recordingPublisher{}
	worker, _ := textAgent("Worker", "streamed")

	n := New("live", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = onceRouter(worker)
		o.Publisher = pub
	})

	run, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	require.NotEmpty(t, pub.events)

	first := pub.events[0]
	assert.Equal(t, stream.EventRunStarted, first.Event)
	assert.Equal(t, run.RunID(), first.RunID)
	assert.Equal(t, "live", first.Scope)

	last := pub.events[len(pub.events)-1]
	assert.Equal(t, stream.EventRunCompleted, last.Event)
	assert.Equal(t, run.RunID(), last.RunID)

	var childSeen bool
	var lastSeq uint64

	for _, ev := range pub.events {
		assert.Greater(t, ev.Sequence, lastSeq)
		lastSeq = ev.Sequence

		if ev.Scope == "Worker" {
			childSeen = true
			assert.Equal(t, run.RunID(), ev.ParentRunID)
			assert.NotEqual(t, run.RunID(), ev.RunID)
		}
	}

	assert.True(t, childSeen)
}

func TestNetwork_Run_StreamCarriesThread(t *testing.T) {
	pub := &recordingPublisher{}
	worker, _ := textAgent("Worker", "w")
	store := newFakeHistory()

	n := New("threaded", func(o *Options) {
		o.Agents = []*agent.Agent{worker}
		o.Router = onceRouter(worker)
		o.Publisher = pub
		o.History = store
	})

	_, err := n.Run(context.Background(), "go")
	require.NoError(t, err)

	var sawThread bool
	for _, ev := range pub.events {
		if ev.ThreadID == "thread-1" {
			sawThread = true
		}
	}
	assert.True(t, sawThread)
}
