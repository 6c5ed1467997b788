// Package orchestrator implements graph execution.
//
// The Engine walks a graph from its start node, one node at a time:
//   - Resolving each node and its handler
//   - Invoking the handler inline or on the worker pool depending on its kind
//   - Merging the returned state delta and recording a log entry
//   - Following the handler's next override, else the edge map
//
// Every run stops after MaxVisits node visits. The Manager owns graph
// creation, run admission and the lifecycle of background runs.
package orchestrator
