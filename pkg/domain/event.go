package domain

import "time"

// EventType identifies a run lifecycle event.
type EventType string

const (
	EventTypeRunStarted  EventType = "run.started"
	EventTypeNodeVisited EventType = "node.visited"
	EventTypeRunFinished EventType = "run.finished"
)

// RunEventsTopic is the event bus topic all run events are published on.
const RunEventsTopic = "run.events"

// Event is published by the execution loop as a run progresses.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	GraphID   string         `json:"graph_id"`
	Node      string         `json:"node,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
