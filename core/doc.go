// Package core provides the foundational domain types and interfaces shared
// across AgentNet. It defines the core abstractions for:
//
//   - Messages (the closed transcript union: text, tool call, tool result)
//   - AgentResults (immutable records of individual agent executions)
//   - State (the concurrent shared blackboard of a network run)
//   - Run / ToolContext (scoped handles handed to tools and hooks)
//   - StepHandle (pluggable durable execution of named work units)
//   - HistoryStore (pluggable thread persistence)
//
// The package intentionally keeps implementation concerns (model adapters,
// orchestration, persistence backends) out of scope, exposing small
// interfaces so the agent, network and history packages can depend on it
// without cycles.
package core
