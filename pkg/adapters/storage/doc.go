// Package storage provides graph and run store implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization and run TTL
//   - memory: In-process maps, the default backend
package storage
