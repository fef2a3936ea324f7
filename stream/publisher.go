package stream

import (
	"context"
	"fmt"
	"sync"
)

// Publisher delivers events to a consumer. Implementations may forward to a
// websocket, a message broker or an in-process channel. Publish errors are
// swallowed by the emitting side; a failing publisher degrades the stream,
// never the run.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(ctx context.Context, ev Event) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// ChannelPublisher forwards events to an in-process channel, the simplest
// way to consume a stream from a test or a request handler.
type ChannelPublisher struct {
	ch   chan Event
	done chan struct{}

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewChannelPublisher constructs a publisher with the given buffer size.
func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Publish implements Publisher. It blocks while the buffer is full and
// fails once the publisher is closed or the context is cancelled. An event
// racing with Close may still deliver.
func (p *ChannelPublisher) Publish(ctx context.Context, ev Event) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("publisher closed")
	}
	p.wg.Add(1)
	p.mu.Unlock()

	defer p.wg.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return fmt.Errorf("publisher closed")
	case p.ch <- ev:
		return nil
	}
}

// Events returns the receive side of the channel. The channel is closed by
// Close once in-flight publishes have drained.
func (p *ChannelPublisher) Events() <-chan Event {
	return p.ch
}

// Close rejects further publishes, unblocks pending ones and closes the
// event channel.
func (p *ChannelPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.ch)
}
