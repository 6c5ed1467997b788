package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aescanero/dagoflow/pkg/domain"
	"go.uber.org/zap"
)

// GraphStore implements ports.GraphStore using an in-memory map.
type GraphStore struct {
	graphs map[string]*domain.GraphSpec
	mu     sync.RWMutex
}

// NewGraphStore creates an empty in-memory graph store
func NewGraphStore() *GraphStore {
	return &GraphStore{
		graphs: make(map[string]*domain.GraphSpec),
	}
}

// Create stores a copy of spec, replacing any graph with the same id
func (s *GraphStore) Create(ctx context.Context, id string, spec *domain.GraphSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: graph is nil", domain.ErrInvalidGraph)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.graphs[id] = spec.Clone()
	return nil
}

// Get retrieves a graph definition
func (s *GraphStore) Get(ctx context.Context, id string) (*domain.GraphSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, ok := s.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
	}
	return spec, nil
}

// List returns all graph ids in lexical order
func (s *GraphStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.graphs))
	for id := range s.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// RunStore implements ports.RunStore using an in-memory map.
//
// The store keeps the live *domain.Run the execution loop writes to, so
// readers calling Get observe progress between Put calls.
type RunStore struct {
	runs   map[string]*domain.Run
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewRunStore creates an empty in-memory run store
func NewRunStore(logger *zap.Logger) *RunStore {
	return &RunStore{
		runs:   make(map[string]*domain.Run),
		logger: logger,
	}
}

// Put inserts or replaces a run
func (s *RunStore) Put(ctx context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.RunID] = run
	return nil
}

// Get returns a snapshot of the run
func (s *RunStore) Get(ctx context.Context, runID string) (*domain.Run, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	return run.Snapshot(), nil
}

// List returns snapshots of the runs of graphID ordered by start time
func (s *RunStore) List(ctx context.Context, graphID string) ([]*domain.Run, error) {
	s.mu.RLock()
	runs := make([]*domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.mu.RUnlock()

	out := make([]*domain.Run, 0, len(runs))
	for _, run := range runs {
		snap := run.Snapshot()
		if graphID != "" && snap.GraphID != graphID {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// Prune removes finished runs that completed before cutoff and returns how many were removed
func (s *RunStore) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, run := range s.runs {
		if run.FinishedBefore(cutoff) {
			delete(s.runs, id)
			removed++
		}
	}
	return removed
}

// StartJanitor prunes runs older than retention every interval until ctx is done.
// A zero retention disables pruning.
func (s *RunStore) StartJanitor(ctx context.Context, interval, retention time.Duration) {
	if retention <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := s.Prune(now.Add(-retention)); removed > 0 {
					s.logger.Debug("pruned finished runs",
						zap.Int("removed", removed),
						zap.Duration("retention", retention))
				}
			}
		}
	}()
}
