package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflow/engine/store"
)

func TestStore_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "agentflow_executions")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agentflow_executions")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	e, err := s.Create(context.Background(), "flow-1", "session-1", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "flow-1", e.AgentflowID)
	assert.Equal(t, store.StateInProgress, e.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "agentflow_executions")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, agentflow_id, session_id, state, execution_data, created_date, stopped_date")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_Found(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "agentflow_executions")

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "agentflow_id", "session_id", "state", "execution_data", "created_date", "stopped_date"}).
		AddRow("exec-1", "flow-1", "session-1", "FINISHED", []byte(`{"ok":true}`), now, (*time.Time)(nil))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, agentflow_id, session_id, state, execution_data, created_date, stopped_date")).
		WithArgs("exec-1").
		WillReturnRows(rows)

	e, err := s.Get(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, store.StateFinished, e.State)
	assert.Nil(t, e.StoppedDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Update_DatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "agentflow_executions")

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "agentflow_id", "session_id", "state", "execution_data", "created_date", "stopped_date"}).
		AddRow("exec-1", "flow-1", "session-1", "INPROGRESS", []byte(`{}`), now, (*time.Time)(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, agentflow_id, session_id, state, execution_data, created_date, stopped_date")).
		WithArgs("exec-1").
		WillReturnRows(rows)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE agentflow_executions")).
		WillReturnError(errors.New("connection reset"))

	finished := store.StateFinished
	err = s.Update(context.Background(), "exec-1", &finished, nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, "agentflow_executions")
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS agentflow_executions")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	err = s.InitSchema(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
