package memory

import (
	"context"
	"sync"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/aescanero/dagoflow/pkg/ports"
	"go.uber.org/zap"
)

const subscriberBuffer = 256

// InMemoryEventBus implements EventBus using in-process subscriptions.
// Each subscriber receives events in publish order on its own goroutine.
type InMemoryEventBus struct {
	subscribers map[string]map[uint64]*subscription
	nextID      uint64
	logger      *zap.Logger
	mu          sync.RWMutex
}

type subscription struct {
	ch      chan domain.Event
	handler ports.EventHandler
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string]map[uint64]*subscription),
		logger:      logger,
	}
}

// Publish delivers an event to all subscribers of a topic without blocking.
// Events are dropped for subscribers whose buffer is full.
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, sub := range e.subscribers[topic] {
		select {
		case sub.ch <- event:
		default:
			e.logger.Warn("subscriber buffer full, dropping event",
				zap.String("topic", topic),
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
	}
	return nil
}

// Subscribe registers handler on topic until ctx is done
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	sub := &subscription{
		ch:      make(chan domain.Event, subscriberBuffer),
		handler: handler,
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	if e.subscribers[topic] == nil {
		e.subscribers[topic] = make(map[uint64]*subscription)
	}
	e.subscribers[topic][id] = sub
	e.mu.Unlock()

	go func() {
		defer e.unsubscribe(topic, id)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-sub.ch:
				if err := sub.handler(ctx, event); err != nil {
					e.logger.Debug("event handler error",
						zap.String("topic", topic),
						zap.String("event_id", event.ID),
						zap.Error(err))
				}
			}
		}
	}()

	return nil
}

// Close drops all subscriptions
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscribers = make(map[string]map[uint64]*subscription)
	return nil
}

func (e *InMemoryEventBus) unsubscribe(topic string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.subscribers[topic], id)
	if len(e.subscribers[topic]) == 0 {
		delete(e.subscribers, topic)
	}
}
