// Package registry holds the node handler registry and the tool registry.
//
// Handlers are registered once during startup, before any run begins, and
// are only read afterwards. Each handler is registered as one of two kinds:
//   - Blocking: dispatched to the worker pool
//   - Suspending: invoked on the run's own goroutine and expected to honor ctx
package registry
