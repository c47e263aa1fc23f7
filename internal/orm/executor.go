package orm

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/logger"
)

// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories work
// the same on a plain connection and inside a transaction.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
	DriverName() string
}

var (
	_ DBExecutor = (*sqlx.DB)(nil)
	_ DBExecutor = (*sqlx.Tx)(nil)
)

func build(q squirrel.Sqlizer, op, table string) (string, []interface{}, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, &Error{Op: op, Table: table, Err: err}
	}
	logger.DB().WithFields(map[string]interface{}{"op": op, "table": table}).Debug(query)
	return query, args, nil
}

// Get runs q and scans exactly one row into dest. No row yields ErrNotFound.
func Get(ctx context.Context, db DBExecutor, dest interface{}, q squirrel.Sqlizer, op, table string) error {
	query, args, err := build(q, op, table)
	if err != nil {
		return err
	}
	if err := db.GetContext(ctx, dest, query, args...); err != nil {
		return ParseError(err, op, table)
	}
	return nil
}

// Select runs q and scans every row into dest, which must be a slice pointer.
func Select(ctx context.Context, db DBExecutor, dest interface{}, q squirrel.Sqlizer, op, table string) error {
	query, args, err := build(q, op, table)
	if err != nil {
		return err
	}
	if err := db.SelectContext(ctx, dest, query, args...); err != nil {
		return ParseError(err, op, table)
	}
	return nil
}

// Exec runs q and returns the number of affected rows.
func Exec(ctx context.Context, db DBExecutor, q squirrel.Sqlizer, op, table string) (int64, error) {
	query, args, err := build(q, op, table)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, ParseError(err, op, table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, ParseError(err, op, table)
	}
	return n, nil
}
