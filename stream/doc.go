// Package stream implements the best-effort event side-channel for agent
// and network runs: run/step/part lifecycle events plus content deltas,
// stamped with strictly increasing sequence numbers shared across a run
// tree.
//
// The channel is observational only. Publish failures are logged and
// swallowed, and a nil *Context drops everything, so orchestration code
// emits unconditionally.
package stream
