package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/aescanero/dagoflow/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Manager coordinates graph creation and run execution
type Manager struct {
	graphs    ports.GraphStore
	runs      ports.RunStore
	engine    *Engine
	validator *Validator
	logger    *zap.Logger

	// bounds the number of runs executing at once
	admission *semaphore.Weighted

	// background runs started with StartRun
	executions sync.Map // map[string]*executionContext
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// executionContext holds state for a single background run
type executionContext struct {
	runID      string
	graphID    string
	startedAt  time.Time
	cancelFunc context.CancelFunc
}

// NewManager creates a new orchestrator manager
func NewManager(
	graphs ports.GraphStore,
	runs ports.RunStore,
	engine *Engine,
	validator *Validator,
	logger *zap.Logger,
	maxConcurrentRuns int64,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	if maxConcurrentRuns < 1 {
		maxConcurrentRuns = 1
	}

	return &Manager{
		graphs:    graphs,
		runs:      runs,
		engine:    engine,
		validator: validator,
		logger:    logger,
		admission: semaphore.NewWeighted(maxConcurrentRuns),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// CreateGraph validates and stores a graph under a fresh identifier
func (m *Manager) CreateGraph(ctx context.Context, spec *domain.GraphSpec) (string, error) {
	graphID := uuid.New().String()
	if err := m.RegisterGraph(ctx, graphID, spec); err != nil {
		return "", err
	}
	return graphID, nil
}

// RegisterGraph validates and stores a graph under a caller-supplied
// identifier, replacing any graph already stored under it
func (m *Manager) RegisterGraph(ctx context.Context, graphID string, spec *domain.GraphSpec) error {
	if err := m.validator.Validate(spec); err != nil {
		m.logger.Warn("graph validation failed",
			zap.String("graph_id", graphID),
			zap.Error(err))
		return err
	}

	if err := m.graphs.Create(ctx, graphID, spec); err != nil {
		return fmt.Errorf("failed to store graph: %w", err)
	}

	m.logger.Info("graph registered",
		zap.String("graph_id", graphID),
		zap.String("start_node", spec.StartNode),
		zap.Int("nodes", len(spec.Nodes)))

	return nil
}

// GetGraph retrieves a graph definition
func (m *Manager) GetGraph(ctx context.Context, graphID string) (*domain.GraphSpec, error) {
	return m.graphs.Get(ctx, graphID)
}

// ListGraphs lists graph identifiers
func (m *Manager) ListGraphs(ctx context.Context) ([]string, error) {
	return m.graphs.List(ctx)
}

// RunGraph executes a graph to completion and returns the finished run.
// It fails with domain.ErrGraphNotFound, without creating a run, when
// graphID is unknown.
func (m *Manager) RunGraph(ctx context.Context, graphID string, initial domain.State) (*domain.Run, error) {
	graph, err := m.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}

	if err := m.admission.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("run admission: %w", err)
	}
	defer m.admission.Release(1)

	run, err := m.engine.Begin(ctx, graphID, graph, initial)
	if err != nil {
		return nil, err
	}

	return m.engine.Execute(ctx, run, graph).Snapshot(), nil
}

// StartRun creates a run and executes it in the background. The returned
// snapshot is taken before the first node is visited; progress is read
// back with GetRun.
func (m *Manager) StartRun(ctx context.Context, graphID string, initial domain.State) (*domain.Run, error) {
	graph, err := m.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}

	if err := m.admission.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("run admission: %w", err)
	}

	run, err := m.engine.Begin(ctx, graphID, graph, initial)
	if err != nil {
		m.admission.Release(1)
		return nil, err
	}
	snapshot := run.Snapshot()

	runCtx, cancel := context.WithCancel(m.ctx)
	m.executions.Store(run.RunID, &executionContext{
		runID:      run.RunID,
		graphID:    graphID,
		startedAt:  snapshot.StartedAt,
		cancelFunc: cancel,
	})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.admission.Release(1)
		defer m.executions.Delete(run.RunID)
		defer cancel()

		m.engine.Execute(runCtx, run, graph)
	}()

	return snapshot, nil
}

// GetRun retrieves a run, finished or in flight
func (m *Manager) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	return m.runs.Get(ctx, runID)
}

// ListRuns lists the runs of a graph, or all runs when graphID is empty
func (m *Manager) ListRuns(ctx context.Context, graphID string) ([]*domain.Run, error) {
	return m.runs.List(ctx, graphID)
}

// ActiveRuns returns the number of background runs still executing
func (m *Manager) ActiveRuns() int {
	count := 0
	m.executions.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// Shutdown cancels background runs and waits for them to record their
// termination
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down orchestrator manager",
		zap.Int("active_runs", m.ActiveRuns()))

	m.executions.Range(func(key, value interface{}) bool {
		execCtx := value.(*executionContext)
		m.logger.Debug("cancelling run",
			zap.String("run_id", execCtx.runID),
			zap.String("graph_id", execCtx.graphID),
			zap.Duration("age", time.Since(execCtx.startedAt)))
		execCtx.cancelFunc()
		return true
	})
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("orchestrator manager shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}
