package history

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/agentnetio/agentnet/core"
	"github.com/agentnetio/agentnet/internal/testutil"
)

// Interface compliance (compile-time assertion)
var _ core.HistoryStore = (*InMemoryStore)(nil)

func result(agentName, text string) *core.AgentResult {
	return testutil.NewResultBuilder(agentName).Text(text).Build()
}

func TestInMemoryStore_CreateThread(t *testing.T) {
	store := NewInMemoryStore()

	id, err := store.CreateThread(context.Background(), core.NewState())
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}

	if id == "" {
		t.Fatal("expected a thread id")
	}

	results, err := store.Results(context.Background(), id)
	if err != nil {
		t.Fatalf("results: %v", err)
	}

	if len(results) != 0 {
		t.Fatalf("expected empty thread, got %d results", len(results))
	}
}

func TestInMemoryStore_AppendAndResults(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	id, err := store.CreateThread(ctx, core.NewState())
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}

	if err := store.AppendResults(ctx, id, []*core.AgentResult{result("A", "one")}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.AppendResults(ctx, id, []*core.AgentResult{result("B", "two"), result("C", "three")}); err != nil {
		t.Fatalf("append: %v", err)
	}

	results, err := store.Results(ctx, id)
	if err != nil {
		t.Fatalf("results: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, want := range []string{"A", "B", "C"} {
		if results[i].AgentName != want {
			t.Fatalf("result %d: expected agent %q, got %q", i, want, results[i].AgentName)
		}
	}
}

func TestInMemoryStore_UnknownThreadEmpty(t *testing.T) {
	store := NewInMemoryStore()

	results, err := store.Results(context.Background(), "nope")
	if err != nil {
		t.Fatalf("results: %v", err)
	}

	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestInMemoryStore_AppendRequiresThreadID(t *testing.T) {
	store := NewInMemoryStore()

	if err := store.AppendResults(context.Background(), "", []*core.AgentResult{result("A", "x")}); err == nil {
		t.Fatal("expected error for empty thread id")
	}
}

func TestInMemoryStore_AppendCreatesUnknownThread(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.AppendResults(ctx, "external-7", []*core.AgentResult{result("A", "x")}); err != nil {
		t.Fatalf("append: %v", err)
	}

	results, _ := store.Results(ctx, "external-7")
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestInMemoryStore_ReadIsolation(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	id, _ := store.CreateThread(ctx, core.NewState())
	_ = store.AppendResults(ctx, id, []*core.AgentResult{result("A", "one"), result("B", "two")})

	results, _ := store.Results(ctx, id)
	results[0] = result("X", "mutated")

	fresh, _ := store.Results(ctx, id)
	if fresh[0].AgentName != "A" {
		t.Fatalf("expected stored slice untouched, got agent %q", fresh[0].AgentName)
	}
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	id, _ := store.CreateThread(ctx, core.NewState())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.AppendResults(ctx, id, []*core.AgentResult{result(fmt.Sprintf("a%d", i), "x")}); err != nil {
				t.Errorf("append err: %v", err)
			}
			_, _ = store.Results(ctx, id)
		}()
	}
	wg.Wait()

	results, err := store.Results(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 100 {
		t.Fatalf("expected 100 results, got %d", len(results))
	}
}
