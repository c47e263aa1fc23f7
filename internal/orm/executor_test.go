package orm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	sqlxDB, mock := newMockDB(t)
	sb := Postgres.Builder()

	t.Run("scans row", func(t *testing.T) {
		mock.ExpectQuery(`SELECT name FROM statuses WHERE id = \$1`).
			WithArgs("s1").
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Doing"))

		var name string
		err := Get(ctx, sqlxDB, &name, sb.Select("name").From("statuses").Where(squirrel.Eq{"id": "s1"}), "get", "statuses")
		require.NoError(t, err)
		assert.Equal(t, "Doing", name)
	})

	t.Run("no rows", func(t *testing.T) {
		mock.ExpectQuery(`SELECT name FROM statuses WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"name"}))

		var name string
		err := Get(ctx, sqlxDB, &name, sb.Select("name").From("statuses").Where(squirrel.Eq{"id": "missing"}), "get", "statuses")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelect(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT position FROM tasks WHERE status_id = \$1 ORDER BY position`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(0).AddRow(1))

	var positions []int
	q := Postgres.Builder().Select("position").From("tasks").Where(squirrel.Eq{"status_id": "s1"}).OrderBy("position")
	require.NoError(t, Select(context.Background(), sqlxDB, &positions, q, "positions", "tasks"))
	assert.Equal(t, []int{0, 1}, positions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExec(t *testing.T) {
	ctx := context.Background()
	sqlxDB, mock := newMockDB(t)
	q := Postgres.Builder().Update("tasks").Set("position", 3).Where(squirrel.Eq{"id": "t1"})

	mock.ExpectExec(`UPDATE tasks SET position = \$1 WHERE id = \$2`).
		WithArgs(3, "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	n, err := Exec(ctx, sqlxDB, q, "place", "tasks")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectExec(`UPDATE tasks`).WillReturnError(errors.New("deadlock detected"))
	_, err = Exec(ctx, sqlxDB, q, "place", "tasks")
	assert.ErrorIs(t, err, ErrDeadlock)
	assert.True(t, IsTransient(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildError(t *testing.T) {
	// An update without SET clauses cannot be rendered.
	_, err := Exec(context.Background(), nil, Postgres.Builder().Update("tasks"), "noop", "tasks")
	var ormErr *Error
	require.True(t, errors.As(err, &ormErr))
	assert.Equal(t, "noop", ormErr.Op)
}
