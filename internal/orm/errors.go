package orm

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Common errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key violation")
	ErrForeignKey       = errors.New("foreign key violation")
	ErrCheckConstraint  = errors.New("check constraint violation")
	ErrNotNull          = errors.New("not null constraint violation")
	ErrDeadlock         = errors.New("deadlock detected")
	ErrSerialization    = errors.New("could not serialize access")
	ErrLockContention   = errors.New("database is locked")
	ErrConnectionFailed = errors.New("database connection failed")
	ErrTimeout          = errors.New("operation timeout")
	ErrCanceled         = errors.New("operation canceled")
)

// Error provides detailed error information
type Error struct {
	Op         string // Operation that failed
	Table      string // Table involved
	Err        error  // Underlying error
	Constraint string // Constraint name (if applicable)
	Column     string // Column name (if applicable)
}

func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("orm: %s", e.Op))

	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}

	if e.Column != "" {
		parts = append(parts, fmt.Sprintf("column=%s", e.Column))
	}

	if e.Constraint != "" {
		parts = append(parts, fmt.Sprintf("constraint=%s", e.Constraint))
	}

	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for Error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return errors.Is(e.Err, target)
	}

	if t.Op != "" && e.Op == t.Op {
		return true
	}

	return errors.Is(e.Err, t.Err)
}

// ParseError converts driver errors from PostgreSQL (lib/pq) or SQLite into
// ORM errors. Errors that are already ORM errors pass through untouched.
func ParseError(err error, op, table string) error {
	if err == nil {
		return nil
	}

	var ormErr *Error
	if errors.As(err, &ormErr) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Op: op, Table: table, Err: ErrNotFound}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return parsePQError(pqErr, op, table)
	}

	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "duplicate key value violates unique constraint"):
		return &Error{Op: op, Table: table, Err: ErrDuplicateKey, Constraint: extractConstraintName(errStr)}
	case strings.Contains(errStr, "UNIQUE constraint failed"):
		return &Error{Op: op, Table: table, Err: ErrDuplicateKey, Column: extractSQLiteColumns(errStr)}
	case strings.Contains(errStr, "violates foreign key constraint"),
		strings.Contains(errStr, "FOREIGN KEY constraint failed"):
		return &Error{Op: op, Table: table, Err: ErrForeignKey, Constraint: extractConstraintName(errStr)}
	case strings.Contains(errStr, "violates not-null constraint"):
		return &Error{Op: op, Table: table, Err: ErrNotNull, Column: extractColumnName(errStr)}
	case strings.Contains(errStr, "NOT NULL constraint failed"):
		return &Error{Op: op, Table: table, Err: ErrNotNull, Column: extractSQLiteColumns(errStr)}
	case strings.Contains(errStr, "violates check constraint"),
		strings.Contains(errStr, "CHECK constraint failed"):
		return &Error{Op: op, Table: table, Err: ErrCheckConstraint, Constraint: extractConstraintName(errStr)}
	case strings.Contains(errStr, "deadlock detected"):
		return &Error{Op: op, Table: table, Err: ErrDeadlock}
	case strings.Contains(errStr, "could not serialize access"):
		return &Error{Op: op, Table: table, Err: ErrSerialization}
	case strings.Contains(errStr, "database is locked"),
		strings.Contains(errStr, "SQLITE_BUSY"):
		return &Error{Op: op, Table: table, Err: ErrLockContention}
	case strings.Contains(errStr, "context deadline exceeded"):
		return &Error{Op: op, Table: table, Err: ErrTimeout}
	case strings.Contains(errStr, "context canceled"):
		return &Error{Op: op, Table: table, Err: ErrCanceled}
	case strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "connection reset"),
		strings.Contains(errStr, "broken pipe"):
		return &Error{Op: op, Table: table, Err: ErrConnectionFailed}
	}

	return &Error{Op: op, Table: table, Err: err}
}

func parsePQError(pqErr *pq.Error, op, table string) error {
	e := &Error{Op: op, Table: table, Err: pqErr, Constraint: pqErr.Constraint, Column: pqErr.Column}

	switch pqErr.Code {
	case "23505":
		e.Err = ErrDuplicateKey
	case "23503":
		e.Err = ErrForeignKey
	case "23502":
		e.Err = ErrNotNull
	case "23514":
		e.Err = ErrCheckConstraint
	case "40P01":
		e.Err = ErrDeadlock
	case "40001":
		e.Err = ErrSerialization
	case "55P03":
		e.Err = ErrLockContention
	case "57014":
		e.Err = ErrTimeout
	}

	return e
}

// Helper functions to extract information from error messages

func extractConstraintName(errStr string) string {
	start := strings.Index(errStr, "\"")
	if start == -1 {
		return ""
	}
	end := strings.Index(errStr[start+1:], "\"")
	if end == -1 {
		return ""
	}
	return errStr[start+1 : start+1+end]
}

func extractColumnName(errStr string) string {
	columnIdx := strings.Index(errStr, "column \"")
	if columnIdx == -1 {
		return ""
	}
	start := columnIdx + 8
	end := strings.Index(errStr[start:], "\"")
	if end == -1 {
		return ""
	}
	return errStr[start : start+end]
}

// extractSQLiteColumns pulls "tasks.project_id, tasks.status_id" out of
// messages such as "UNIQUE constraint failed: tasks.project_id, tasks.status_id".
func extractSQLiteColumns(errStr string) string {
	idx := strings.LastIndex(errStr, "failed: ")
	if idx == -1 {
		return ""
	}
	cols := errStr[idx+len("failed: "):]
	if end := strings.Index(cols, " ("); end != -1 {
		cols = cols[:end]
	}
	return strings.TrimSpace(cols)
}

// IsTransient reports whether err is a lock or serialization failure that a
// fresh transaction may not hit again.
func IsTransient(err error) bool {
	return errors.Is(err, ErrDeadlock) ||
		errors.Is(err, ErrSerialization) ||
		errors.Is(err, ErrLockContention)
}

// IsConstraintError checks if an error is a constraint violation
func IsConstraintError(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrForeignKey) ||
		errors.Is(err, ErrCheckConstraint) ||
		errors.Is(err, ErrNotNull)
}

// GetConstraintName extracts the constraint name from an error
func GetConstraintName(err error) string {
	var ormErr *Error
	if errors.As(err, &ormErr) {
		return ormErr.Constraint
	}
	return ""
}
