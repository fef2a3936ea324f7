package core

import "context"

// HistoryStore persists conversation threads across network runs. A run
// hydrates prior results at startup and appends the results it produced at
// normal completion; mid-run state is never written back.
type HistoryStore interface {
	// CreateThread allocates a new thread for the given state and returns
	// its id. Called when a run starts with no thread id assigned.
	CreateThread(ctx context.Context, state *State) (string, error)

	// Results returns the stored results for a thread in append order. An
	// unknown thread yields an empty slice, not an error.
	Results(ctx context.Context, threadID string) ([]*AgentResult, error)

	// AppendResults adds newly produced results to the end of a thread.
	AppendResults(ctx context.Context, threadID string, results []*AgentResult) error
}
