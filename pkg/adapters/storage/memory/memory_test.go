package memory

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGraphStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewGraphStore()

	spec := &domain.GraphSpec{
		Nodes:     []domain.NodeSpec{{Name: "a", Handler: "h"}},
		Edges:     map[string]string{},
		StartNode: "a",
	}
	require.NoError(t, store.Create(ctx, "g1", spec))

	// later caller mutations do not leak into the stored definition
	spec.Nodes[0].Handler = "changed"

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "h", got.Nodes[0].Handler)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestGraphStoreCreateOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewGraphStore()

	require.NoError(t, store.Create(ctx, "g1", &domain.GraphSpec{StartNode: "a"}))
	require.NoError(t, store.Create(ctx, "g1", &domain.GraphSpec{StartNode: "b"}))

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.StartNode)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, ids)
}

func TestRunStorePutGetList(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(zaptest.NewLogger(t))

	r1 := domain.NewRun("r1", "g1", "a", domain.State{}, time.Now())
	r2 := domain.NewRun("r2", "g2", "a", domain.State{}, time.Now().Add(time.Second))
	require.NoError(t, store.Put(ctx, r1))
	require.NoError(t, store.Put(ctx, r2))

	// progress made on the live record is visible without another Put
	r1.SetCurrentNode("b")
	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.CurrentNode)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r1", all[0].RunID)

	onlyG2, err := store.List(ctx, "g2")
	require.NoError(t, err)
	require.Len(t, onlyG2, 1)
	assert.Equal(t, "r2", onlyG2[0].RunID)
}

func TestRunStorePrune(t *testing.T) {
	ctx := context.Background()
	store := NewRunStore(zaptest.NewLogger(t))

	old := domain.NewRun("old", "g", "a", domain.State{}, time.Now())
	old.Finish(domain.TerminationNormalEnd, domain.State{}, time.Now().Add(-time.Hour))
	running := domain.NewRun("running", "g", "a", domain.State{}, time.Now())
	require.NoError(t, store.Put(ctx, old))
	require.NoError(t, store.Put(ctx, running))

	removed := store.Prune(time.Now().Add(-time.Minute))
	assert.Equal(t, 1, removed)

	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
	_, err = store.Get(ctx, "running")
	assert.NoError(t, err)
}
