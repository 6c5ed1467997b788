package redis

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestGraphStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	store := NewGraphStore(client, zaptest.NewLogger(t))

	spec := &domain.GraphSpec{
		Nodes: []domain.NodeSpec{
			{Name: "extract", Handler: "extract_functions"},
			{Name: "evaluate", Handler: "evaluate_quality", Params: map[string]any{"threshold": 70}},
		},
		Edges:     map[string]string{"extract": "evaluate"},
		StartNode: "extract",
	}
	require.NoError(t, store.Create(ctx, "g1", spec))

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "extract", got.StartNode)
	assert.Equal(t, "evaluate", got.Edges["extract"])
	assert.Equal(t, float64(70), got.Nodes[1].Params["threshold"])

	_, err = store.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, ids)
}

func TestRunStorePutGetList(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	store := NewRunStore(client, 0, zaptest.NewLogger(t))

	run := domain.NewRun("r1", "g1", "a", domain.State{"code": "x"}, time.Now())
	require.NoError(t, store.Put(ctx, run))

	run.Append(domain.LogEntry{Node: "a", Before: domain.State{"code": "x"}, After: domain.State{"code": "x", "done": true}}, domain.State{"code": "x", "done": true})
	run.Finish(domain.TerminationNormalEnd, domain.State{"code": "x", "done": true}, time.Now())
	require.NoError(t, store.Put(ctx, run))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, got.Finished)
	assert.Equal(t, domain.TerminationNormalEnd, got.Termination)
	assert.Equal(t, true, got.State["done"])
	require.Len(t, got.Log, 1)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	byGraph, err := store.List(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, byGraph, 1)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRunStoreAppliesTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	store := NewRunStore(client, time.Minute, zaptest.NewLogger(t))

	require.NoError(t, store.Put(ctx, domain.NewRun("r1", "g1", "a", domain.State{}, time.Now())))
	assert.Equal(t, time.Minute, mr.TTL(runPrefix+"r1"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	runs, err := store.List(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, runs)
}
