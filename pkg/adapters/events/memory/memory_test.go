package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	require.NoError(t, bus.Subscribe(ctx, domain.RunEventsTopic, func(ctx context.Context, event domain.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event.ID)
		if len(got) == 50 {
			close(done)
		}
		return nil
	}))

	for i := 0; i < 50; i++ {
		require.NoError(t, bus.Publish(ctx, domain.RunEventsTopic, domain.Event{ID: fmt.Sprintf("%02d", i)}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, id := range got {
		assert.Equal(t, fmt.Sprintf("%02d", i), id)
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, bus.Subscribe(ctx, "topic", func(ctx context.Context, event domain.Event) error {
		return nil
	}))
	cancel()

	assert.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["topic"]) == 0
	}, time.Second, 10*time.Millisecond)
}
