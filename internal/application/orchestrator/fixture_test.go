package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/dagoflow/internal/application/registry"
	"github.com/aescanero/dagoflow/internal/application/workers"
	eventsmemory "github.com/aescanero/dagoflow/pkg/adapters/events/memory"
	"github.com/aescanero/dagoflow/pkg/adapters/metrics/prometheus"
	storagememory "github.com/aescanero/dagoflow/pkg/adapters/storage/memory"
	"github.com/aescanero/dagoflow/pkg/domain"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	handlers *registry.Registry
	tools    *registry.Tools
	graphs   *storagememory.GraphStore
	runs     *storagememory.RunStore
	bus      *eventsmemory.InMemoryEventBus
	pool     *workers.Pool
	engine   *Engine
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	metrics := prometheus.NewCollector(promclient.NewRegistry())

	f := &fixture{
		handlers: registry.New(),
		tools:    registry.NewTools(),
		graphs:   storagememory.NewGraphStore(),
		runs:     storagememory.NewRunStore(logger),
		bus:      eventsmemory.NewInMemoryEventBus(logger),
	}

	f.pool = workers.NewPool(4, metrics, logger, 0)
	require.NoError(t, f.pool.Start())

	f.engine = NewEngine(f.handlers, f.tools.View(), f.pool, f.runs, f.bus, metrics, logger)
	f.manager = NewManager(f.graphs, f.runs, f.engine, NewValidator(), logger, 16)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.manager.Shutdown(ctx)
		_ = f.pool.Shutdown(ctx)
	})

	return f
}

// graph registers spec under id and fails the test on error
func (f *fixture) graph(t *testing.T, id string, spec *domain.GraphSpec) {
	t.Helper()
	require.NoError(t, f.manager.RegisterGraph(context.Background(), id, spec))
}

// returning builds a handler that always returns res
func returning(res *domain.Result) registry.HandlerFunc {
	return func(ctx context.Context, state domain.State, params map[string]any, tools registry.ToolSet) (*domain.Result, error) {
		return res, nil
	}
}

func nodes(pairs ...string) []domain.NodeSpec {
	out := make([]domain.NodeSpec, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.NodeSpec{Name: pairs[i], Handler: pairs[i+1]})
	}
	return out
}

func nodeNames(run *domain.Run) []string {
	names := make([]string, len(run.Log))
	for i, entry := range run.Log {
		names[i] = entry.Node
	}
	return names
}
