// Package postgres implements store.Store using PostgreSQL, grounded on
// the teacher's PostgresCheckpointStore: same DBPool seam for pgxmock
// testability, same single-payload-column shape (a BYTEA execution_data
// column), repurposed from
// graph.Checkpoint rows to store.Execution rows.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentflow/engine/store"
)

// DBPool is the subset of *pgxpool.Pool the Store depends on, seamed so
// tests can substitute pgxmock.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool      DBPool
	tableName string
}

// Options configures the Postgres connection.
type Options struct {
	ConnString string
	TableName  string // default "agentflow_executions"
}

// New creates a Store backed by a fresh pgxpool connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "agentflow_executions"
	}
	return &Store{pool: pool, tableName: tableName}, nil
}

// NewWithPool creates a Store from an existing DBPool, useful for testing
// with pgxmock.
func NewWithPool(pool DBPool, tableName string) *Store {
	if tableName == "" {
		tableName = "agentflow_executions"
	}
	return &Store{pool: pool, tableName: tableName}
}

// InitSchema creates the necessary table if it doesn't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			agentflow_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			state TEXT NOT NULL,
			execution_data BYTEA,
			created_date TIMESTAMPTZ NOT NULL,
			stopped_date TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session ON %s (agentflow_id, session_id, created_date);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("store/postgres: create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
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
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.tableName)
	_, err := s.pool.Exec(ctx, query, e.ID, e.AgentflowID, e.SessionID, string(e.State), e.ExecutionData, e.CreatedDate)
	if err != nil {
		return store.Execution{}, fmt.Errorf("store/postgres: create: %w", err)
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
		UPDATE %s SET state = $1, execution_data = $2, stopped_date = $3 WHERE id = $4
	`, s.tableName)
	_, err = s.pool.Exec(ctx, query, string(existing.State), existing.ExecutionData, existing.StoppedDate, id)
	if err != nil {
		return fmt.Errorf("store/postgres: update: %w", err)
	}
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id string) (store.Execution, error) {
	query := fmt.Sprintf(`
		SELECT id, agentflow_id, session_id, state, execution_data, created_date, stopped_date
		FROM %s WHERE id = $1
	`, s.tableName)
	return scanExecution(s.pool.QueryRow(ctx, query, id))
}

// LatestBySession implements store.Store.
func (s *Store) LatestBySession(ctx context.Context, agentflowID, sessionID string) (store.Execution, error) {
	query := fmt.Sprintf(`
		SELECT id, agentflow_id, session_id, state, execution_data, created_date, stopped_date
		FROM %s WHERE agentflow_id = $1 AND session_id = $2
		ORDER BY created_date DESC LIMIT 1
	`, s.tableName)
	return scanExecution(s.pool.QueryRow(ctx, query, agentflowID, sessionID))
}

func scanExecution(row pgx.Row) (store.Execution, error) {
	var e store.Execution
	var state string
	var stoppedDate *time.Time

	err := row.Scan(&e.ID, &e.AgentflowID, &e.SessionID, &state, &e.ExecutionData, &e.CreatedDate, &stoppedDate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return store.Execution{}, store.ErrNotFound
		}
		return store.Execution{}, fmt.Errorf("store/postgres: scan: %w", err)
	}
	e.State = store.State(state)
	e.StoppedDate = stoppedDate
	return e, nil
}
