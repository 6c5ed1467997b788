package websocket

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	eventsmemory "github.com/aescanero/dagoflow/pkg/adapters/events/memory"
	storagememory "github.com/aescanero/dagoflow/pkg/adapters/storage/memory"
	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type storeReader struct {
	store *storagememory.RunStore
}

func (r storeReader) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	return r.store.Get(ctx, runID)
}

func setup(t *testing.T) (*httptest.Server, *storagememory.RunStore, *eventsmemory.InMemoryEventBus) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t)
	runs := storagememory.NewRunStore(logger)
	bus := eventsmemory.NewInMemoryEventBus(logger)

	handler := NewHandler(storeReader{store: runs}, bus, logger)
	handler.pollInterval = 20 * time.Millisecond

	router := gin.New()
	router.GET("/runs/:id/ws", handler.HandleRunStream)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, runs, bus
}

func dial(t *testing.T, srv *httptest.Server, runID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/runs/" + runID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestStreamSendsSnapshotThenEvents(t *testing.T) {
	srv, runs, bus := setup(t)
	run := domain.NewRun("run-1", "g", "a", domain.State{"code": "x"}, time.Now())
	require.NoError(t, runs.Put(context.Background(), run))

	conn := dial(t, srv, "run-1")

	var snapshot Message
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, MessageTypeSnapshot, snapshot.Type)
	require.NotNil(t, snapshot.Run)
	assert.Equal(t, "run-1", snapshot.Run.RunID)
	assert.False(t, snapshot.Run.Finished)

	publish := func(runID string, eventType domain.EventType, node string) {
		require.NoError(t, bus.Publish(context.Background(), domain.RunEventsTopic, domain.Event{
			ID:    string(eventType) + node,
			Type:  eventType,
			RunID: runID,
			Node:  node,
		}))
	}
	publish("other-run", domain.EventTypeNodeVisited, "z")
	publish("run-1", domain.EventTypeNodeVisited, "a")
	publish("run-1", domain.EventTypeRunFinished, "")

	var visited Message
	require.NoError(t, conn.ReadJSON(&visited))
	assert.Equal(t, string(domain.EventTypeNodeVisited), visited.Type)
	require.NotNil(t, visited.Event)
	assert.Equal(t, "a", visited.Event.Node)

	var finished Message
	require.NoError(t, conn.ReadJSON(&finished))
	assert.Equal(t, string(domain.EventTypeRunFinished), finished.Type)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestStreamClosesAfterEventBurst(t *testing.T) {
	srv, runs, bus := setup(t)
	ctx := context.Background()
	run := domain.NewRun("run-3", "g", "a", domain.State{}, time.Now())
	require.NoError(t, runs.Put(ctx, run))

	conn := dial(t, srv, "run-3")

	var snapshot Message
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.False(t, snapshot.Run.Finished)

	// a fast run: many more visits than any buffer holds, then the finish
	const visits = 1000
	run.Finish(domain.TerminationVisitCeilingReached, domain.State{}, time.Now())
	require.NoError(t, runs.Put(ctx, run))
	for i := 0; i < visits; i++ {
		require.NoError(t, bus.Publish(ctx, domain.RunEventsTopic, domain.Event{
			ID:    fmt.Sprintf("visit-%d", i),
			Type:  domain.EventTypeNodeVisited,
			RunID: "run-3",
			Node:  "a",
		}))
	}
	require.NoError(t, bus.Publish(ctx, domain.RunEventsTopic, domain.Event{
		ID:    "finished",
		Type:  domain.EventTypeRunFinished,
		RunID: "run-3",
	}))

	var last Message
	received := 0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "stream ended with %v", err)
			break
		}
		last = msg
		received++
	}

	require.Positive(t, received)
	switch last.Type {
	case string(domain.EventTypeRunFinished):
	case MessageTypeSnapshot:
		require.NotNil(t, last.Run)
		assert.True(t, last.Run.Finished)
		assert.Equal(t, domain.TerminationVisitCeilingReached, last.Run.Termination)
	default:
		t.Fatalf("stream ended on %q", last.Type)
	}
}

func TestStreamOfFinishedRunClosesAfterSnapshot(t *testing.T) {
	srv, runs, _ := setup(t)
	run := domain.NewRun("run-2", "g", "a", domain.State{}, time.Now())
	run.Finish(domain.TerminationNormalEnd, domain.State{"done": true}, time.Now())
	require.NoError(t, runs.Put(context.Background(), run))

	conn := dial(t, srv, "run-2")

	var snapshot Message
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.NotNil(t, snapshot.Run)
	assert.True(t, snapshot.Run.Finished)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestStreamOfUnknownRun(t *testing.T) {
	srv, _, _ := setup(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/runs/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
