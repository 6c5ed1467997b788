package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aescanero/dagoflow/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	graphPrefix     = "dagoflow:graph:"
	runPrefix       = "dagoflow:run:"
	graphRunsPrefix = "dagoflow:graph-runs:"
)

// GraphStore implements ports.GraphStore using Redis
type GraphStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewGraphStore creates a new Redis graph store
func NewGraphStore(client *redis.Client, logger *zap.Logger) *GraphStore {
	return &GraphStore{
		client: client,
		logger: logger,
	}
}

// Create stores a graph definition, replacing any previous one under id
func (s *GraphStore) Create(ctx context.Context, id string, spec *domain.GraphSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: graph is nil", domain.ErrInvalidGraph)
	}

	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	if err := s.client.Set(ctx, graphPrefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	s.logger.Debug("graph saved", zap.String("graph_id", id))
	return nil
}

// Get retrieves a graph definition
func (s *GraphStore) Get(ctx context.Context, id string) (*domain.GraphSpec, error) {
	data, err := s.client.Get(ctx, graphPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id)
		}
		return nil, fmt.Errorf("failed to get graph: %w", err)
	}

	var spec domain.GraphSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &spec, nil
}

// List returns all graph ids in lexical order
func (s *GraphStore) List(ctx context.Context) ([]string, error) {
	keys, err := scanKeys(ctx, s.client, graphPrefix+"*")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, graphPrefix))
	}
	sort.Strings(ids)
	return ids, nil
}

// RunStore implements ports.RunStore using Redis.
//
// Runs are stored as JSON documents. A non-zero ttl is applied on every
// write, which bounds retention of finished runs.
type RunStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRunStore creates a new Redis run store
func NewRunStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RunStore {
	return &RunStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Put writes the full run record
func (s *RunStore) Put(ctx context.Context, run *domain.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, runPrefix+run.RunID, data, s.ttl)
	pipe.SAdd(ctx, graphRunsPrefix+run.GraphID, run.RunID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	s.logger.Debug("run saved",
		zap.String("run_id", run.RunID),
		zap.String("graph_id", run.GraphID))

	return nil
}

// Get retrieves a run record
func (s *RunStore) Get(ctx context.Context, runID string) (*domain.Run, error) {
	data, err := s.client.Get(ctx, runPrefix+runID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// List returns the runs of graphID, or all runs when graphID is empty, ordered by start time
func (s *RunStore) List(ctx context.Context, graphID string) ([]*domain.Run, error) {
	var ids []string
	if graphID == "" {
		keys, err := scanKeys(ctx, s.client, runPrefix+"*")
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, runPrefix))
		}
	} else {
		members, err := s.client.SMembers(ctx, graphRunsPrefix+graphID).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list graph runs: %w", err)
		}
		ids = members
	}

	runs := make([]*domain.Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrRunNotFound) {
				// expired, drop the stale index entry
				if graphID != "" {
					s.client.SRem(ctx, graphRunsPrefix+graphID, id)
				}
				continue
			}
			return nil, err
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}

func scanKeys(ctx context.Context, client *redis.Client, pattern string) ([]string, error) {
	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
