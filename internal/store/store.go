// Package store persists board state. Every repository runs on an injected
// orm.DBExecutor, so the same code serves plain connections and transactions.
package store

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/orm"
)

// Store aggregates the per-entity repositories.
type Store struct {
	db      orm.DBExecutor
	dialect orm.Dialect
	tm      *orm.TransactionManager
	clock   func() time.Time

	Projects     ProjectRepository
	Statuses     StatusRepository
	Tasks        TaskRepository
	Assignments  AssignmentRepository
	Dependencies DependencyRepository
	Labels       LabelRepository
	Activity     ActivityRepository
}

// New creates a Store on a database handle.
func New(db *sqlx.DB, dialect orm.Dialect) *Store {
	s := newStore(db, dialect, defaultClock)
	s.tm = orm.NewTransactionManager(db)
	return s
}

func defaultClock() time.Time { return time.Now().UTC() }

func newStore(db orm.DBExecutor, dialect orm.Dialect, clock func() time.Time) *Store {
	s := &Store{db: db, dialect: dialect, clock: clock}
	b := base{db: db, sb: dialect.Builder(), dialect: dialect, now: func() time.Time { return s.clock() }}
	s.Projects = &projectRepo{b}
	s.Statuses = &statusRepo{b}
	s.Tasks = &taskRepo{b}
	s.Assignments = &assignmentRepo{b}
	s.Dependencies = &dependencyRepo{b}
	s.Labels = &labelRepo{b}
	s.Activity = &activityRepo{b}
	return s
}

// SetClock overrides the timestamp source used for created/updated columns.
func (s *Store) SetClock(clock func() time.Time) { s.clock = clock }

func (s *Store) Dialect() orm.Dialect { return s.dialect }

// InTransaction reports whether s is bound to an open transaction.
func (s *Store) InTransaction() bool { return s.tm == nil }

// WithTransaction runs fn with a Store bound to a single transaction. The
// transaction commits when fn returns nil. Calling it on a store that is
// already transactional runs fn on the same transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(*Store) error) error {
	if s.InTransaction() {
		return fn(s)
	}
	return s.tm.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return fn(newStore(tx, s.dialect, s.clock))
	})
}

// Snapshot runs fn on a read-only transaction so that every read inside it
// sees the same committed state.
func (s *Store) Snapshot(ctx context.Context, fn func(*Store) error) error {
	if s.InTransaction() {
		return fn(s)
	}
	return s.tm.WithTransactionOptions(ctx, s.dialect.SnapshotOptions(), func(tx *sqlx.Tx) error {
		return fn(newStore(tx, s.dialect, s.clock))
	})
}

// base carries what every repository needs.
type base struct {
	db      orm.DBExecutor
	sb      squirrel.StatementBuilderType
	dialect orm.Dialect
	now     func() time.Time
}

// insertIgnore renders an INSERT that skips rows violating a unique key.
// Both dialects accept the ON CONFLICT DO NOTHING form.
func (b base) insertIgnore(table string) squirrel.InsertBuilder {
	return b.sb.Insert(table).Suffix("ON CONFLICT DO NOTHING")
}
