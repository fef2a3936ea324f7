package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/agentnetio/agentnet/core"
)

// InMemoryStore is a volatile HistoryStore keeping threads in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo setups. Returned slices are copies so callers cannot
// mutate stored history.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]*core.AgentResult
}

// NewInMemoryStore constructs an empty in-memory history store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string][]*core.AgentResult)}
}

// CreateThread allocates a fresh thread id.
func (s *InMemoryStore) CreateThread(ctx context.Context, state *core.State) (string, error) {
	threadID := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads[threadID] = nil

	return threadID, nil
}

// Results returns the stored results for a thread in append order. Unknown
// threads yield an empty slice.
func (s *InMemoryStore) Results(ctx context.Context, threadID string) ([]*core.AgentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.threads[threadID]

	results := make([]*core.AgentResult, len(stored))
	copy(results, stored)

	return results, nil
}

// AppendResults adds new results to the end of a thread. Appending under an
// id the store has never seen brings the thread into existence, which lets
// callers reuse externally allocated thread ids.
func (s *InMemoryStore) AppendResults(ctx context.Context, threadID string, results []*core.AgentResult) error {
	if threadID == "" {
		return fmt.Errorf("history: thread id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads[threadID] = append(s.threads[threadID], results...)

	return nil
}

// Threads lists the known thread ids in unspecified order.
func (s *InMemoryStore) Threads() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}

	return ids
}
