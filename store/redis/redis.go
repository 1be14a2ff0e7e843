// Package redis implements store.Store using Redis, grounded on the
// teacher's RedisCheckpointStore: same prefix/TTL shape and session-index
// set, repurposed from graph.Checkpoint rows to store.Execution rows.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agentflow/engine/store"
)

// Store implements store.Store using Redis.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "agentflow:"
	TTL      time.Duration // expiration for executions, default 0 (no expiration)
}

// New creates a Redis-backed Store.
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "agentflow:"
	}

	return &Store{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *Store) executionKey(id string) string {
	return fmt.Sprintf("%sexecution:%s", s.prefix, id)
}

func (s *Store) sessionKey(agentflowID, sessionID string) string {
	return fmt.Sprintf("%ssession:%s:%s", s.prefix, agentflowID, sessionID)
}

type record struct {
	ID            string     `json:"id"`
	AgentflowID   string     `json:"agentflowId"`
	SessionID     string     `json:"sessionId"`
	State         string     `json:"state"`
	ExecutionData []byte     `json:"executionData"`
	CreatedDate   time.Time  `json:"createdDate"`
	StoppedDate   *time.Time `json:"stoppedDate"`
}

func toRecord(e store.Execution) record {
	return record{
		ID:            e.ID,
		AgentflowID:   e.AgentflowID,
		SessionID:     e.SessionID,
		State:         string(e.State),
		ExecutionData: e.ExecutionData,
		CreatedDate:   e.CreatedDate,
		StoppedDate:   e.StoppedDate,
	}
}

func (r record) toExecution() store.Execution {
	return store.Execution{
		ID:            r.ID,
		AgentflowID:   r.AgentflowID,
		SessionID:     r.SessionID,
		State:         store.State(r.State),
		ExecutionData: r.ExecutionData,
		CreatedDate:   r.CreatedDate,
		StoppedDate:   r.StoppedDate,
	}
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, agentflowID, sessionID string, initialData []byte) (store.Execution, error) {
	e := store.Execution{
		ID:            uuid.NewString(),
		AgentflowID:   agentflowID,
		SessionID:     sessionID,
		State:         store.StateInProgress,
		ExecutionData: initialData,
		CreatedDate:   time.Now(),
	}

	data, err := json.Marshal(toRecord(e))
	if err != nil {
		return store.Execution{}, fmt.Errorf("store/redis: marshal execution: %w", err)
	}

	key := s.executionKey(e.ID)
	sessKey := s.sessionKey(agentflowID, sessionID)

	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, s.ttl)
	pipe.ZAdd(ctx, sessKey, redis.Z{Score: float64(e.CreatedDate.UnixNano()), Member: e.ID})
	if s.ttl > 0 {
		pipe.Expire(ctx, sessKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return store.Execution{}, fmt.Errorf("store/redis: create: %w", err)
	}
	return e, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, id string, state *store.State, executionData []byte) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if state != nil {
		existing.State = *state
		if *state == store.StateStopped {
			now := time.Now()
			existing.StoppedDate = &now
		}
	}
	if executionData != nil {
		existing.ExecutionData = executionData
	}

	data, err := json.Marshal(toRecord(existing))
	if err != nil {
		return fmt.Errorf("store/redis: marshal execution: %w", err)
	}

	if err := s.client.Set(ctx, s.executionKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store/redis: update: %w", err)
	}
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id string) (store.Execution, error) {
	data, err := s.client.Get(ctx, s.executionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return store.Execution{}, store.ErrNotFound
		}
		return store.Execution{}, fmt.Errorf("store/redis: get: %w", err)
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return store.Execution{}, fmt.Errorf("store/redis: unmarshal execution: %w", err)
	}
	return r.toExecution(), nil
}

// LatestBySession implements store.Store.
func (s *Store) LatestBySession(ctx context.Context, agentflowID, sessionID string) (store.Execution, error) {
	ids, err := s.client.ZRevRangeByScore(ctx, s.sessionKey(agentflowID, sessionID), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return store.Execution{}, fmt.Errorf("store/redis: latest by session: %w", err)
	}
	if len(ids) == 0 {
		return store.Execution{}, store.ErrNotFound
	}
	return s.Get(ctx, ids[0])
}
