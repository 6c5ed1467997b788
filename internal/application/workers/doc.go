// Package workers implements the worker pool for blocking node handlers.
//
// The worker pool manages a fixed number of goroutines that:
//   - Take blocking handler invocations submitted by the execution loop
//   - Run each invocation to completion and signal the waiting run
//   - Report idle/busy/stopped status
//
// The health monitor tracks worker status, logs it and records pool metrics.
package workers
