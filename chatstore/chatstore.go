// Package chatstore defines the chat-message persistence interface the
// engine writes through (§6: "two chat messages per run") and a memory
// implementation. The chat-message store proper is an external
// collaborator (§1) — the production implementation lives outside this
// module; what's here is the contract plus a reference backend, grounded
// on the teacher's showcases/chat/pkg/session JSON-history pattern.
package chatstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role names for the two message kinds the engine writes per run.
const (
	RoleUserMessage = "userMessage"
	RoleAPIMessage  = "apiMessage"
)

// Message is one persisted chat-message row.
type Message struct {
	ID        string
	ChatID    string
	SessionID string
	Role      string
	Content   string
	// Action is populated on a STOPPED human-input pause and cleared on
	// resume (§6: "prior chat-message rows whose action field is
	// populated have that field cleared on the most recent matching row").
	Action    map[string]any
	CreatedAt time.Time
}

// Store is the persistence contract the engine writes through.
type Store interface {
	Create(ctx context.Context, msg Message) (Message, error)
	// ClearLatestAction clears the Action field of the most recent message
	// in chatID whose Action is non-nil, used on resume per §6.
	ClearLatestAction(ctx context.Context, chatID string) error
	ListByChat(ctx context.Context, chatID string) ([]Message, error)
}

// MemoryStore is an in-process Store, safe for concurrent use across
// distinct chat ids (§5 "isolation is provided by keys").
type MemoryStore struct {
	mu       sync.Mutex
	messages map[string][]Message // chatID -> ordered messages
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]Message)}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], msg)
	return msg, nil
}

// ClearLatestAction implements Store.
func (s *MemoryStore) ClearLatestAction(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[chatID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Action != nil {
			msgs[i].Action = nil
			return nil
		}
	}
	return nil
}

// ListByChat implements Store.
func (s *MemoryStore) ListByChat(ctx context.Context, chatID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages[chatID]))
	copy(out, s.messages[chatID])
	return out, nil
}
