// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Graph creation and lookup
//   - Synchronous and background runs
//   - Run state queries
//   - Worker pool status, health checks and Prometheus metrics
//
// The /graph/create, /graph/run and /graph/state/:run_id routes keep the
// flat request and response shapes of the first API version.
package http
