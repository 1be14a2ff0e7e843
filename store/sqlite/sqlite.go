// Package sqlite implements store.Store using SQLite, grounded on the
// teacher's SqliteCheckpointStore (same schema shape: a single table keyed
// by a generated id, with an index on the owning identifier), repurposed
// from persisting graph.Checkpoint to persisting store.Execution rows.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agentflow/engine/store"
)

// Store implements store.Store using SQLite.
type Store struct {
	db        *sql.DB
	tableName string
}

// Options configures the SQLite connection.
type Options struct {
	Path      string
	TableName string // default "agentflow_executions"
}

// New opens (or creates) a SQLite-backed Store.
func New(opts Options) (*Store, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("store/sqlite: open: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "agentflow_executions"
	}

	s := &Store{db: db, tableName: tableName}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			agentflow_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			state TEXT NOT NULL,
			execution_data BLOB,
			created_date DATETIME NOT NULL,
			stopped_date DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session ON %s (agentflow_id, session_id, created_date);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("store/sqlite: init schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
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

	query := fmt.Sprintf(`
		INSERT INTO %s (id, agentflow_id, session_id, state, execution_data, created_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.tableName)
	_, err := s.db.ExecContext(ctx, query, e.ID, e.AgentflowID, e.SessionID, string(e.State), e.ExecutionData, e.CreatedDate)
	if err != nil {
		return store.Execution{}, fmt.Errorf("store/sqlite: create: %w", err)
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

	query := fmt.Sprintf(`
		UPDATE %s SET state = ?, execution_data = ?, stopped_date = ? WHERE id = ?
	`, s.tableName)
	_, err = s.db.ExecContext(ctx, query, string(existing.State), existing.ExecutionData, existing.StoppedDate, id)
	if err != nil {
		return fmt.Errorf("store/sqlite: update: %w", err)
	}
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id string) (store.Execution, error) {
	query := fmt.Sprintf(`
		SELECT id, agentflow_id, session_id, state, execution_data, created_date, stopped_date
		FROM %s WHERE id = ?
	`, s.tableName)
	row := s.db.QueryRowContext(ctx, query, id)
	return scanExecution(row)
}

// LatestBySession implements store.Store.
func (s *Store) LatestBySession(ctx context.Context, agentflowID, sessionID string) (store.Execution, error) {
	query := fmt.Sprintf(`
		SELECT id, agentflow_id, session_id, state, execution_data, created_date, stopped_date
		FROM %s WHERE agentflow_id = ? AND session_id = ?
		ORDER BY created_date DESC LIMIT 1
	`, s.tableName)
	row := s.db.QueryRowContext(ctx, query, agentflowID, sessionID)
	return scanExecution(row)
}

func scanExecution(row *sql.Row) (store.Execution, error) {
	var e store.Execution
	var state string
	var stoppedDate sql.NullTime

	err := row.Scan(&e.ID, &e.AgentflowID, &e.SessionID, &state, &e.ExecutionData, &e.CreatedDate, &stoppedDate)
	if err == sql.ErrNoRows {
		return store.Execution{}, store.ErrNotFound
	}
	if err != nil {
		return store.Execution{}, fmt.Errorf("store/sqlite: scan: %w", err)
	}
	e.State = store.State(state)
	if stoppedDate.Valid {
		e.StoppedDate = &stoppedDate.Time
	}
	return e, nil
}
