// Package ports defines the interfaces the application layer depends on.
//
// Adapters under pkg/adapters implement them:
//   - GraphStore, RunStore: storage/memory, storage/redis
//   - EventBus: events/memory, events/redis
//   - MetricsCollector: metrics/prometheus
//   - LLMClient: llm/anthropic
package ports
