package core

import "context"

// StepHandle executes a named unit of work. Durable execution backends can
// implement it to memoize or retry individual steps; the default executes
// inline. The id identifies the step within its run and should be stable
// across retries of the same run.
type StepHandle interface {
	Run(ctx context.Context, id string, fn func(ctx context.Context) (any, error)) (any, error)
}

// StepFunc adapts a plain function to the StepHandle interface.
type StepFunc func(ctx context.Context, id string, fn func(ctx context.Context) (any, error)) (any, error)

// Run implements StepHandle.
func (f StepFunc) Run(ctx context.Context, id string, fn func(ctx context.Context) (any, error)) (any, error) {
	return f(ctx, id, fn)
}

// InlineStep executes steps immediately in-process with no memoization.
type InlineStep struct{}

// Run implements StepHandle.
func (InlineStep) Run(ctx context.Context, _ string, fn func(ctx context.Context) (any, error)) (any, error) {
	return fn(ctx)
}
