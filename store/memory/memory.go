// Package memory is an in-process store.Store, mirroring the teacher's
// store/memory checkpoint store's plain-map-plus-mutex shape.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentflow/engine/store"
)

// Store is an in-memory store.Store implementation, primarily intended
// for tests.
type Store struct {
	mu         sync.Mutex
	executions map[string]store.Execution
}

// New constructs an empty Store.
func New() *Store {
	return &Store{executions: make(map[string]store.Execution)}
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, agentflowID, sessionID string, initialData []byte) (store.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := store.Execution{
		ID:            uuid.NewString(),
		AgentflowID:   agentflowID,
		SessionID:     sessionID,
		State:         store.StateInProgress,
		ExecutionData: initialData,
		CreatedDate:   time.Now(),
	}
	s.executions[e.ID] = e
	return e, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, id string, state *store.State, executionData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.executions[id]
	if !ok {
		return store.ErrNotFound
	}
	if state != nil {
		e.State = *state
		if *state == store.StateStopped {
			now := time.Now()
			e.StoppedDate = &now
		}
	}
	if executionData != nil {
		e.ExecutionData = executionData
	}
	s.executions[id] = e
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id string) (store.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.executions[id]
	if !ok {
		return store.Execution{}, store.ErrNotFound
	}
	return e, nil
}

// LatestBySession implements store.Store.
func (s *Store) LatestBySession(ctx context.Context, agentflowID, sessionID string) (store.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []store.Execution
	for _, e := range s.executions {
		if e.AgentflowID == agentflowID && e.SessionID == sessionID {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return store.Execution{}, store.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedDate.After(matches[j].CreatedDate)
	})
	return matches[0], nil
}
