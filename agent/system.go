package agent

import (
	"context"

	"github.com/agentnetio/agentnet/core"
)

// SystemProvider supplies system prompt text for an agent at runtime.
// Implementations can derive the prompt from shared state, the time of day,
// or any other context available when the run begins.
type SystemProvider interface {
	// System returns the system prompt text. The run argument carries the
	// surrounding network run and is nil for standalone runs.
	System(ctx context.Context, run core.Run) (string, error)
}

// SystemFunc is a functional adapter to allow the use of ordinary functions
// as system prompt providers.
type SystemFunc func(ctx context.Context, run core.Run) (string, error)

// System implements the SystemProvider interface.
func (f SystemFunc) System(ctx context.Context, run core.Run) (string, error) {
	return f(ctx, run)
}

// System represents either a static system prompt or a dynamic provider.
// It mirrors a union of string | provider in a Go-idiomatic way.
type System struct {
	text     string
	provider SystemProvider
}

// NewSystemFromText creates a System from static text.
func NewSystemFromText(text string) System {
	return System{text: text}
}

// NewSystemFromProvider creates a System backed by a dynamic provider.
func NewSystemFromProvider(p SystemProvider) System {
	return System{provider: p}
}

// NewSystemFromFunc creates a System backed by a provider function.
func NewSystemFromFunc(f func(ctx context.Context, run core.Run) (string, error)) System {
	return System{provider: SystemFunc(f)}
}

// IsStatic reports whether the system prompt is static text.
func (s System) IsStatic() bool {
	return s.provider == nil
}

// Resolve returns the system prompt text, invoking the provider when one is
// configured.
func (s System) Resolve(ctx context.Context, run core.Run) (string, error) {
	if s.provider != nil {
		return s.provider.System(ctx, run)
	}

	return s.text, nil
}
