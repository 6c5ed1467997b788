package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/aescanero/dagoflow/internal/application/registry"
	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/aescanero/dagoflow/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxVisits is the fixed number of node visits after which a run stops.
const MaxVisits = 1000

// NoteNodeNotFound is the log note recorded when a run reaches an undeclared node.
const NoteNodeNotFound = "node not found"

// Dispatcher runs blocking handler invocations off the run goroutine.
type Dispatcher interface {
	Do(ctx context.Context, fn func()) error
}

// Engine executes runs.
type Engine struct {
	handlers   *registry.Registry
	tools      registry.ToolSet
	dispatcher Dispatcher
	runs       ports.RunStore
	events     ports.EventBus
	metrics    ports.MetricsCollector
	logger     *zap.Logger

	active atomic.Int64
}

// NewEngine creates an execution engine
func NewEngine(
	handlers *registry.Registry,
	tools registry.ToolSet,
	dispatcher Dispatcher,
	runs ports.RunStore,
	events ports.EventBus,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		handlers:   handlers,
		tools:      tools,
		dispatcher: dispatcher,
		runs:       runs,
		events:     events,
		metrics:    metrics,
		logger:     logger,
	}
}

// Begin creates a run record for graph and inserts it into the run store.
// The record is observable before any node is visited.
func (e *Engine) Begin(ctx context.Context, graphID string, graph *domain.GraphSpec, initial domain.State) (*domain.Run, error) {
	run := domain.NewRun(uuid.New().String(), graphID, graph.StartNode, initial, time.Now())

	if err := e.runs.Put(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}

	e.metrics.RecordRunStarted()
	e.publish(ctx, run, domain.EventTypeRunStarted, "", map[string]any{
		"start_node": graph.StartNode,
	})

	e.logger.Info("run started",
		zap.String("run_id", run.RunID),
		zap.String("graph_id", graphID),
		zap.String("start_node", graph.StartNode))

	return run, nil
}

// Execute walks graph for run until no successor remains, a node or
// handler cannot be resolved, a handler faults, or MaxVisits is reached.
// None of these is returned as an error: the cause is recorded on the run.
func (e *Engine) Execute(ctx context.Context, run *domain.Run, graph *domain.GraphSpec) *domain.Run {
	e.metrics.SetActiveRuns(int(e.active.Add(1)))
	defer func() { e.metrics.SetActiveRuns(int(e.active.Add(-1))) }()

	logger := e.logger.With(
		zap.String("run_id", run.RunID),
		zap.String("graph_id", run.GraphID))

	// progress is persisted even after ctx is cancelled
	storeCtx := context.WithoutCancel(ctx)

	// live is the state bag handed to handlers; readers only see clones of it
	live := run.Snapshot().State
	current := graph.StartNode
	termination := domain.TerminationNormalEnd
	visits := 0

	for current != "" {
		if visits >= MaxVisits {
			termination = domain.TerminationVisitCeilingReached
			logger.Warn("visit ceiling reached",
				zap.Int("visits", visits),
				zap.String("pending_node", current))
			break
		}
		visits++

		run.SetCurrentNode(current)

		node, ok := graph.Node(current)
		if !ok {
			snapshot := live.Clone()
			e.record(storeCtx, run, domain.LogEntry{Node: current, Before: snapshot, After: snapshot, Note: NoteNodeNotFound}, live)
			termination = domain.TerminationNodeNotFound
			logger.Warn("node not found", zap.String("node", current))
			break
		}

		before := live.Clone()

		handler, ok := e.handlers.Resolve(node.Handler)
		if !ok {
			e.record(storeCtx, run, domain.LogEntry{
				Node:   current,
				Before: before,
				After:  before,
				Note:   fmt.Sprintf("handler '%s' not found", node.Handler),
			}, live)
			termination = domain.TerminationHandlerNotFound
			logger.Warn("handler not found",
				zap.String("node", current),
				zap.String("handler", node.Handler))
			break
		}

		params := node.Params
		if params == nil {
			params = map[string]any{}
		}

		start := time.Now()
		result, err := e.invoke(ctx, handler, live, params)
		duration := time.Since(start)

		if err != nil {
			e.record(storeCtx, run, domain.LogEntry{
				Node:   current,
				Before: before,
				After:  live.Clone(),
				Note:   fmt.Sprintf("handler fault: %v", err),
			}, live)
			e.metrics.RecordNodeVisited(handler.Name, string(handler.Kind), "fault", duration)
			termination = domain.TerminationHandlerFault
			logger.Error("handler fault",
				zap.String("node", current),
				zap.String("handler", handler.Name),
				zap.Error(err))
			break
		}

		var note, next string
		if result != nil {
			live.Merge(result.StateDelta)
			note = result.Note
			next = result.Next
		}

		e.record(storeCtx, run, domain.LogEntry{Node: current, Before: before, After: live.Clone(), Note: note}, live)
		e.metrics.RecordNodeVisited(handler.Name, string(handler.Kind), "ok", duration)

		logger.Debug("node visited",
			zap.String("node", current),
			zap.String("handler", handler.Name),
			zap.String("next_override", next),
			zap.Duration("duration", duration))

		// an explicit next always wins over the edge map
		if next != "" {
			current = next
		} else if successor, ok := graph.Next(current); ok {
			current = successor
		} else {
			current = ""
		}
	}

	run.Finish(termination, live, time.Now())
	if err := e.runs.Put(storeCtx, run); err != nil {
		logger.Error("failed to store finished run", zap.Error(err))
	}

	snapshot := run.Snapshot()
	duration := time.Duration(0)
	if snapshot.FinishedAt != nil {
		duration = snapshot.FinishedAt.Sub(snapshot.StartedAt)
	}

	e.metrics.RecordRunFinished(string(termination), duration)
	e.publish(storeCtx, run, domain.EventTypeRunFinished, "", map[string]any{
		"termination": string(termination),
		"visits":      visits,
	})

	logger.Info("run finished",
		zap.String("termination", string(termination)),
		zap.Int("visits", visits),
		zap.Duration("duration", duration))

	return run
}

// invoke dispatches a handler according to its kind
func (e *Engine) invoke(ctx context.Context, h registry.Handler, state domain.State, params map[string]any) (*domain.Result, error) {
	if h.Kind == registry.KindSuspending {
		return e.safeCall(ctx, h, state, params)
	}

	var result *domain.Result
	var callErr error
	if err := e.dispatcher.Do(ctx, func() {
		result, callErr = e.safeCall(ctx, h, state, params)
	}); err != nil {
		return nil, fmt.Errorf("dispatch handler %q: %w", h.Name, err)
	}
	return result, callErr
}

// safeCall invokes the handler, converting a panic into an error
func (e *Engine) safeCall(ctx context.Context, h registry.Handler, state domain.State, params map[string]any) (result *domain.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panic",
				zap.String("handler", h.Name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			result = nil
			err = fmt.Errorf("panic in handler %q: %v", h.Name, r)
		}
	}()
	return h.Fn(ctx, state, params, e.tools)
}

// record appends a log entry, persists the run and publishes the visit
func (e *Engine) record(ctx context.Context, run *domain.Run, entry domain.LogEntry, live domain.State) {
	run.Append(entry, live)

	if err := e.runs.Put(ctx, run); err != nil {
		e.logger.Warn("failed to store run progress",
			zap.String("run_id", run.RunID),
			zap.Error(err))
	}

	e.publish(ctx, run, domain.EventTypeNodeVisited, entry.Node, map[string]any{
		"entry": entry,
	})
}

func (e *Engine) publish(ctx context.Context, run *domain.Run, eventType domain.EventType, node string, data map[string]any) {
	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RunID:     run.RunID,
		GraphID:   run.GraphID,
		Node:      node,
		Timestamp: time.Now(),
		Data:      data,
	}

	if err := e.events.Publish(ctx, domain.RunEventsTopic, event); err != nil {
		e.logger.Warn("failed to publish event",
			zap.String("run_id", run.RunID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
