package chatstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/google/uuid"
)

// SqliteStore implements Store using SQLite, mirroring the teacher's
// store/sqlite checkpoint backend adapted to chat-message rows.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (or creates) a SQLite-backed chat-message store at
// path.
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("chatstore: open sqlite: %w", err)
	}
	s := &SqliteStore{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqliteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			action TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_chat_id ON chat_messages (chat_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("chatstore: init schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// Create implements Store.
func (s *SqliteStore) Create(ctx context.Context, msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	var actionJSON []byte
	if msg.Action != nil {
		var err error
		actionJSON, err = json.Marshal(msg.Action)
		if err != nil {
			return Message{}, fmt.Errorf("chatstore: marshal action: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, chat_id, session_id, role, content, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChatID, msg.SessionID, msg.Role, msg.Content, nullableJSON(actionJSON), msg.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("chatstore: insert message: %w", err)
	}
	return msg, nil
}

// ClearLatestAction implements Store.
func (s *SqliteStore) ClearLatestAction(ctx context.Context, chatID string) error {
	row := s.db.QueryRowContext(ctx, `
		SELECT id FROM chat_messages
		WHERE chat_id = ? AND action IS NOT NULL
		ORDER BY created_at DESC LIMIT 1
	`, chatID)

	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("chatstore: find latest action row: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `UPDATE chat_messages SET action = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("chatstore: clear action: %w", err)
	}
	return nil
}

// ListByChat implements Store.
func (s *SqliteStore) ListByChat(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, session_id, role, content, action, created_at
		FROM chat_messages WHERE chat_id = ? ORDER BY created_at ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("chatstore: list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var actionJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SessionID, &m.Role, &m.Content, &actionJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("chatstore: scan message: %w", err)
		}
		if actionJSON.Valid {
			if err := json.Unmarshal([]byte(actionJSON.String), &m.Action); err != nil {
				return nil, fmt.Errorf("chatstore: unmarshal action: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
