package orm

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

// Dialect identifies the SQL backend a store talks to.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect normalises driver names found in configuration files.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// Placeholder returns the bind-variable format used by the dialect.
func (d Dialect) Placeholder() squirrel.PlaceholderFormat {
	if d == SQLite {
		return squirrel.Question
	}
	return squirrel.Dollar
}

// Builder returns a squirrel statement builder bound to the dialect's placeholders.
func (d Dialect) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder())
}

// SupportsRowLocks reports whether SELECT ... FOR UPDATE is available.
// SQLite serialises writers at the database level instead.
func (d Dialect) SupportsRowLocks() bool {
	return d == Postgres
}

// SnapshotOptions are the transaction options for multi-query reads that must
// see one committed state. SQLite transactions already are serializable.
func (d Dialect) SnapshotOptions() *TransactionOptions {
	if d == Postgres {
		return &TransactionOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}
