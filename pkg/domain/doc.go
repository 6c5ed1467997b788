// Package domain holds the data model shared by the execution loop, the
// stores and the transport layer.
//
// A GraphSpec is an immutable declaration of named nodes, a default edge
// map and a start node. A Run is one execution of a graph: it owns the
// shared state bag and an append-only log with one LogEntry per visit.
package domain
