// Package redis persists conversation threads in Redis so networks can
// resume threads across processes and restarts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/agentnetio/agentnet/core"
)

// farFuture is the index score for threads without expiration (2100-01-01).
const farFuture = 4102444800

// Store implements core.HistoryStore on Redis. Each thread is a list of
// JSON-serialized results under <prefix><threadID>; a sorted set under
// <prefix>index tracks known threads for listing and lazy pruning.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiration for threads. Zero keeps threads forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for threads.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis history store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis history store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "agentnet:thread:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(threadID string) string {
	return s.prefix + threadID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// CreateThread allocates a thread id and registers it in the index.
func (s *Store) CreateThread(ctx context.Context, state *core.State) (string, error) {
	threadID := uuid.NewString()

	err := s.client.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  s.expiryScore(),
		Member: threadID,
	}).Err()
	if err != nil {
		return "", fmt.Errorf("failed to register thread in redis: %w", err)
	}

	return threadID, nil
}

// Results returns the stored results for a thread in append order. Unknown
// or expired threads yield an empty slice.
func (s *Store) Results(ctx context.Context, threadID string) ([]*core.AgentResult, error) {
	entries, err := s.client.LRange(ctx, s.key(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read thread from redis: %w", err)
	}

	results := make([]*core.AgentResult, 0, len(entries))

	for _, entry := range entries {
		var result core.AgentResult
		if err := json.Unmarshal([]byte(entry), &result); err != nil {
			return nil, fmt.Errorf("failed to decode stored result: %w", err)
		}

		results = append(results, &result)
	}

	return results, nil
}

// AppendResults adds new results to the end of a thread and refreshes its
// TTL and index entry. Appending under an externally allocated id brings
// the thread into existence.
func (s *Store) AppendResults(ctx context.Context, threadID string, results []*core.AgentResult) error {
	if threadID == "" {
		return fmt.Errorf("history: thread id is required")
	}

	if len(results) == 0 {
		return nil
	}

	entries := make([]any, 0, len(results))

	for _, result := range results {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}

		entries = append(entries, data)
	}

	pipe := s.client.Pipeline()

	pipe.RPush(ctx, s.key(threadID), entries...)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(threadID), s.ttl)
	}

	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  s.expiryScore(),
		Member: threadID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}

	return nil
}

// DeleteThread removes a thread and its index entry.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(threadID))
	pipe.ZRem(ctx, s.indexKey(), threadID)

	_, err := pipe.Exec(ctx)

	return err
}

// Threads lists known thread ids, lazily pruning index entries whose TTL
// has lapsed.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired threads: %w", err)
	}

	threads, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	return threads, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// expiryScore computes the index score for a thread touched now.
func (s *Store) expiryScore() float64 {
	if s.ttl == 0 {
		return farFuture
	}

	return float64(time.Now().Add(s.ttl).Unix())
}

var _ core.HistoryStore = (*Store)(nil)
