// Package websocket streams run progress to clients.
//
// A stream opens with a run.snapshot message holding the run as stored,
// then relays the run's node.visited events and ends after run.finished.
package websocket
