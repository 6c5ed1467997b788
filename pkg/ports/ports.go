package ports

import (
	"context"
	"time"

	"github.com/aescanero/dagoflow/pkg/domain"
)

// GraphStore holds graph definitions by identifier.
type GraphStore interface {
	// Create stores spec under id, silently replacing any previous definition.
	Create(ctx context.Context, id string, spec *domain.GraphSpec) error
	// Get fails with domain.ErrGraphNotFound when id is unknown.
	Get(ctx context.Context, id string) (*domain.GraphSpec, error)
	List(ctx context.Context) ([]string, error)
}

// RunStore holds run records by run identifier.
type RunStore interface {
	// Put inserts or fully overwrites the record for run.RunID.
	Put(ctx context.Context, run *domain.Run) error
	// Get fails with domain.ErrRunNotFound when runID is unknown.
	Get(ctx context.Context, runID string) (*domain.Run, error)
	// List returns the runs of graphID, or every run when graphID is empty.
	List(ctx context.Context, graphID string) ([]*domain.Run, error)
}

// EventHandler consumes a single event.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus fans run events out to subscribers.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	// Subscribe delivers events published after the call until ctx is done.
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// MetricsCollector records execution metrics.
type MetricsCollector interface {
	RecordRunStarted()
	RecordRunFinished(termination string, duration time.Duration)
	RecordNodeVisited(handler, kind, status string, duration time.Duration)
	SetActiveRuns(count int)
	RecordWorkerPoolStatus(idle, busy, stopped int)
}

// LLMClient generates text completions.
type LLMClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
