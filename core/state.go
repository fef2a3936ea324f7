package core

import (
	"maps"
	"sync"
)

// State is the shared blackboard for a network run. It combines a typed-free
// key/value store, the append-only log of agent results, and the seed
// messages that precede them in the transcript. All methods are safe for
// concurrent use; getters return defensive copies so callers can iterate
// without holding locks.
//
// Result records are shared by reference across copies and clones. They are
// treated as immutable once appended.
type State struct {
	mu sync.RWMutex

	data     map[string]any
	results  []*AgentResult
	messages []Message
	threadID string
	userID   string
}

// StateOptions configures a new State.
type StateOptions struct {
	// Data seeds the key/value store.
	Data map[string]any

	// Messages seed the conversation ahead of any agent results, e.g. a
	// restored transcript or an initial user request.
	Messages []Message

	// ThreadID pins the state to an existing conversation thread. When empty
	// a thread id is assigned during history hydration.
	ThreadID string

	// UserID attributes the run to an end user. Propagated into stream
	// events; not interpreted otherwise.
	UserID string
}

// NewState constructs an empty state, applying any options.
func NewState(optFns ...func(o *StateOptions)) *State {
	opts := StateOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	s := &State{
		data:     make(map[string]any, len(opts.Data)),
		threadID: opts.ThreadID,
		userID:   opts.UserID,
	}

	maps.Copy(s.data, opts.Data)

	if len(opts.Messages) > 0 {
		s.messages = append(s.messages, opts.Messages...)
	}

	return s
}

// Get retrieves the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]

	return v, ok
}

// Set stores a value under key, replacing any previous value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
}

// Has reports whether key is present.
func (s *State) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[key]

	return ok
}

// Delete removes key from the store.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

// Keys returns the currently stored keys in unspecified order.
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}

	return keys
}

// Data returns a shallow copy of the key/value store.
func (s *State) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := make(map[string]any, len(s.data))
	maps.Copy(data, s.data)

	return data
}

// Messages returns a copy of the seed messages.
func (s *State) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)

	return msgs
}

// Results returns a copy of the result log.
func (s *State) Results() []*AgentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*AgentResult, len(s.results))
	copy(results, s.results)

	return results
}

// SetResults replaces the result log, e.g. when hydrating a thread from a
// history store.
func (s *State) SetResults(results []*AgentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]*AgentResult, len(results))
	copy(s.results, results)
}

// AppendResult adds a result record to the end of the log.
func (s *State) AppendResult(r *AgentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, r)
}

// ResultsFrom returns the results appended at or after the given index.
// Callers record len(Results()) as a checkpoint and later collect everything
// newer. Out-of-range indexes are clamped.
func (s *State) ResultsFrom(start int) []*AgentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if start < 0 {
		start = 0
	}

	if start > len(s.results) {
		start = len(s.results)
	}

	results := make([]*AgentResult, len(s.results)-start)
	copy(results, s.results[start:])

	return results
}

// ResultCount reports the current length of the result log.
func (s *State) ResultCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.results)
}

// FormatHistory renders the full transcript: seed messages first, then each
// result projected through the formatter in append order. A nil formatter
// falls back to DefaultHistoryFormatter.
func (s *State) FormatHistory(f HistoryFormatter) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f == nil {
		f = DefaultHistoryFormatter
	}

	history := make([]Message, 0, len(s.messages))
	history = append(history, s.messages...)

	for _, r := range s.results {
		history = append(history, f(r)...)
	}

	return history
}

// ThreadID returns the conversation thread id, or empty when unassigned.
func (s *State) ThreadID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.threadID
}

// SetThreadID assigns the thread id once. Later calls are ignored so a
// hydrated thread can never be re-pointed mid-run.
func (s *State) SetThreadID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.threadID != "" {
		return
	}

	s.threadID = id
}

// UserID returns the user attribution for the run.
func (s *State) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userID
}

// SetUserID sets the user attribution for the run.
func (s *State) SetUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = id
}

// Clone returns an independent state sharing no mutable containers with the
// original: the key/value map, result log and seed messages are copied,
// thread and user ids carried over. Values inside the map are shared.
func (s *State) Clone() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &State{
		data:     make(map[string]any, len(s.data)),
		results:  make([]*AgentResult, len(s.results)),
		messages: make([]Message, len(s.messages)),
		threadID: s.threadID,
		userID:   s.userID,
	}

	maps.Copy(clone.data, s.data)
	copy(clone.results, s.results)
	copy(clone.messages, s.messages)

	return clone
}
