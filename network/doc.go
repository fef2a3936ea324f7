// Package network schedules multiple agents under a router against shared
// conversation state.
//
// A Network holds a roster of agents and a Router. Each call to Run creates
// a single-use NetworkRun that asks the router which agent acts first,
// executes agents one at a time in stack order, appends every result to the
// shared state, and asks the router again after each invocation until the
// router stops returning names, the stack empties, or the call cap is hit.
//
// Routers come in two forms. A RouterFunc decides deterministically in code
// and may introduce agents the network did not know at construction time. A
// ModelRouter delegates the decision to a model-backed routing agent whose
// select_agent tool call names the next agent; its result joins the
// conversation record like any other invocation.
//
// Execution is strictly sequential: one model call, tool call or router
// evaluation at a time, never two agents at once. With a history store
// configured, a run hydrates prior results for its thread before scheduling
// and appends the newly produced results when it completes.
package network
