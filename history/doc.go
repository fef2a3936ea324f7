// Package history houses concrete implementations of core.HistoryStore.
// The interface itself lives in the core package to centralize domain
// contracts; keeping only implementations here prevents higher level
// packages (agents, networks) from depending on concrete storage.
//
// Additional backends live in sub-packages (see history/redis) so only the
// wiring layer decides which implementation to instantiate.
package history
