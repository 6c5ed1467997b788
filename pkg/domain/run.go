package domain

import (
	"encoding/json"
	"sync"
	"time"
)

// Termination records why a run stopped.
type Termination string

const (
	TerminationNone                Termination = ""
	TerminationNormalEnd           Termination = "normal_end"
	TerminationNodeNotFound        Termination = "node_not_found"
	TerminationHandlerNotFound     Termination = "handler_not_found"
	TerminationVisitCeilingReached Termination = "visit_ceiling_reached"
	TerminationHandlerFault        Termination = "handler_fault"
)

// LogEntry records one node visit.
type LogEntry struct {
	Node   string `json:"node"`
	Before State  `json:"before"`
	After  State  `json:"after"`
	Note   string `json:"note,omitempty"`
}

// Run is the record of one graph execution.
//
// The execution loop is the only writer. Readers observe a run through
// Snapshot or JSON encoding, both of which take the record's lock, so a run
// can be polled while it is still in flight.
type Run struct {
	RunID       string      `json:"run_id"`
	GraphID     string      `json:"graph_id"`
	State       State       `json:"state"`
	CurrentNode string      `json:"current_node,omitempty"`
	Finished    bool        `json:"finished"`
	Termination Termination `json:"termination,omitempty"`
	Log         []LogEntry  `json:"log"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`

	mu sync.RWMutex
}

// NewRun creates an unfinished run positioned on startNode.
func NewRun(runID, graphID, startNode string, state State, now time.Time) *Run {
	return &Run{
		RunID:       runID,
		GraphID:     graphID,
		State:       state.Clone(),
		CurrentNode: startNode,
		Log:         []LogEntry{},
		StartedAt:   now,
	}
}

// SetCurrentNode marks the node being visited.
func (r *Run) SetCurrentNode(name string) {
	r.mu.Lock()
	r.CurrentNode = name
	r.mu.Unlock()
}

// Append records a visit and publishes the state as of the end of that visit.
func (r *Run) Append(entry LogEntry, state State) {
	r.mu.Lock()
	r.Log = append(r.Log, entry)
	r.State = state.Clone()
	r.mu.Unlock()
}

// Finish marks the run complete. The record is not modified afterwards.
func (r *Run) Finish(reason Termination, state State, now time.Time) {
	r.mu.Lock()
	r.State = state.Clone()
	r.CurrentNode = ""
	r.Finished = true
	r.Termination = reason
	r.FinishedAt = &now
	r.mu.Unlock()
}

// IsFinished reports whether the run has completed.
func (r *Run) IsFinished() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Finished
}

// FinishedBefore reports whether the run completed strictly before t.
func (r *Run) FinishedBefore(t time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Finished && r.FinishedAt != nil && r.FinishedAt.Before(t)
}

// Snapshot returns a copy of the run that is safe to read without locking.
func (r *Run) Snapshot() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := &Run{
		RunID:       r.RunID,
		GraphID:     r.GraphID,
		State:       r.State.Clone(),
		CurrentNode: r.CurrentNode,
		Finished:    r.Finished,
		Termination: r.Termination,
		Log:         make([]LogEntry, len(r.Log)),
		StartedAt:   r.StartedAt,
	}
	copy(out.Log, r.Log)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

type runJSON struct {
	RunID       string      `json:"run_id"`
	GraphID     string      `json:"graph_id"`
	State       State       `json:"state"`
	CurrentNode string      `json:"current_node,omitempty"`
	Finished    bool        `json:"finished"`
	Termination Termination `json:"termination,omitempty"`
	Log         []LogEntry  `json:"log"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
}

// MarshalJSON encodes the run under its read lock.
func (r *Run) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return json.Marshal(runJSON{
		RunID:       r.RunID,
		GraphID:     r.GraphID,
		State:       r.State,
		CurrentNode: r.CurrentNode,
		Finished:    r.Finished,
		Termination: r.Termination,
		Log:         r.Log,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	})
}

// UnmarshalJSON decodes a run encoded by MarshalJSON.
func (r *Run) UnmarshalJSON(data []byte) error {
	var aux runJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.RunID = aux.RunID
	r.GraphID = aux.GraphID
	r.State = aux.State
	r.CurrentNode = aux.CurrentNode
	r.Finished = aux.Finished
	r.Termination = aux.Termination
	r.Log = aux.Log
	r.StartedAt = aux.StartedAt
	r.FinishedAt = aux.FinishedAt
	if r.Log == nil {
		r.Log = []LogEntry{}
	}
	return nil
}
