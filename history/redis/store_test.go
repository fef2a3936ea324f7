package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentnetio/agentnet/agent"
	"github.com/agentnetio/agentnet/core"
	historyredis "github.com/agentnetio/agentnet/history/redis"
	"github.com/agentnetio/agentnet/internal/testutil"
	"github.com/agentnetio/agentnet/model"
	"github.com/agentnetio/agentnet/network"
)

func newTestStore(t *testing.T, opts ...historyredis.Option) (*historyredis.Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	return historyredis.NewFromClient(client, opts...), mr
}

func sampleResult(agentName, text string) *core.AgentResult {
	return testutil.NewResultBuilder(agentName).
		Text(text).
		ToolCall("call_1", "lookup", map[string]any{"query": "weather"}, map[string]any{"status": "ok"}).
		Build()
}

func TestStore_AppendAndResults(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	threadID, err := store.CreateThread(ctx, core.NewState())
	require.NoError(t, err)
	require.NotEmpty(t, threadID)

	err = store.AppendResults(ctx, threadID, []*core.AgentResult{
		sampleResult("Researcher", "found it"),
		sampleResult("Writer", "wrote it"),
	})
	require.NoError(t, err)

	results, err := store.Results(ctx, threadID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Researcher", results[0].AgentName)
	assert.Equal(t, "found it", results[0].TextOutput())
	assert.Equal(t, "Writer", results[1].AgentName)

	// Tool results survive the round trip with their call identity intact.
	require.Len(t, results[0].ToolCalls, 1)
	assert.Equal(t, "lookup", results[0].ToolCalls[0].Tool.Name)
	assert.Equal(t, map[string]any{"query": "weather"}, results[0].ToolCalls[0].Tool.Input)
	assert.Equal(t, map[string]any{"status": "ok"}, results[0].ToolCalls[0].Content)
}

func TestStore_UnknownThreadEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	results, err := store.Results(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_AppendRequiresThreadID(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.AppendResults(context.Background(), "", []*core.AgentResult{sampleResult("A", "x")})
	assert.ErrorContains(t, err, "thread id is required")
}

func TestStore_Prefix(t *testing.T) {
	store, mr := newTestStore(t, historyredis.WithPrefix("custom:app:"))
	ctx := context.Background()

	threadID, err := store.CreateThread(ctx, core.NewState())
	require.NoError(t, err)

	err = store.AppendResults(ctx, threadID, []*core.AgentResult{sampleResult("A", "x")})
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:"+threadID), "expected thread key with custom prefix")
	assert.True(t, mr.Exists("custom:app:index"), "expected index with custom prefix")
}

func TestStore_ThreadsListing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateThread(ctx, core.NewState())
	require.NoError(t, err)

	second, err := store.CreateThread(ctx, core.NewState())
	require.NoError(t, err)

	threads, err := store.Threads(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, threads)
}

func TestStore_DeleteThread(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	threadID, err := store.CreateThread(ctx, core.NewState())
	require.NoError(t, err)

	err = store.AppendResults(ctx, threadID, []*core.AgentResult{sampleResult("A", "x")})
	require.NoError(t, err)

	require.NoError(t, store.DeleteThread(ctx, threadID))

	results, err := store.Results(ctx, threadID)
	require.NoError(t, err)
	assert.Empty(t, results)

	threads, err := store.Threads(ctx)
	require.NoError(t, err)
	assert.NotContains(t, threads, threadID)

	assert.False(t, mr.Exists("agentnet:thread:"+threadID))
}

func TestStore_TTLExpiration(t *testing.T) {
	store, mr := newTestStore(t, historyredis.WithTTL(100*time.Millisecond))
	ctx := context.Background()

	threadID, err := store.CreateThread(ctx, core.NewState())
	require.NoError(t, err)

	err = store.AppendResults(ctx, threadID, []*core.AgentResult{sampleResult("A", "x")})
	require.NoError(t, err)

	// Key expiration is simulated by miniredis; the index prune relies on
	// wall-clock time passing the entry's score.
	mr.FastForward(200 * time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	results, err := store.Results(ctx, threadID)
	require.NoError(t, err)
	assert.Empty(t, results)

	threads, err := store.Threads(ctx)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

// -------------------- Network Integration Tests --------------------

func TestStore_NetworkPersistsAcrossRuns(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	newNetwork := func() *network.Network {
		mock := model.NewMock("mock")
		echo := agent.New("Echo", func(o *agent.Options) {
			o.Model = mock
		})

		return network.New("support", func(o *network.Options) {
			o.Agents = []*agent.Agent{echo}
			o.History = store
			o.Router = network.RouterFunc(func(ctx context.Context, args *network.RouterArgs) ([]*agent.Agent, error) {
				if args.CallCount > 0 {
					return nil, nil
				}

				return []*agent.Agent{echo}, nil
			})
		})
	}

	run, err := newNetwork().Run(ctx, "first question")
	require.NoError(t, err)

	threadID := run.State().ThreadID()
	require.NotEmpty(t, threadID)

	stored, err := store.Results(ctx, threadID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	// A second run on the same thread hydrates the stored history and
	// appends only its own delta.
	state := core.NewState()
	state.SetThreadID(threadID)

	_, err = newNetwork().Run(ctx, "second question", func(o *network.RunOptions) {
		o.State = state
	})
	require.NoError(t, err)

	stored, err = store.Results(ctx, threadID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Echo", stored[0].AgentName)
	assert.Equal(t, "Echo", stored[1].AgentName)
}
