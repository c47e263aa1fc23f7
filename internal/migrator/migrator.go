package migrator

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const migrationsTable = "schema_migrations"

// Migration is one embedded schema file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Migration
	AppliedAt *time.Time
}

// Migrator applies the embedded schema for one dialect.
type Migrator struct {
	db      *sqlx.DB
	dialect orm.Dialect
}

func New(db *sqlx.DB, dialect orm.Dialect) *Migrator {
	return &Migrator{db: db, dialect: dialect}
}

// Migrations lists the embedded migrations for dialect in version order.
func Migrations(dialect orm.Dialect) ([]Migration, error) {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}

	prefix := string(dialect) + "_"
	var migrations []Migration
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s: invalid version: %w", name, err)
		}
		content, err := schemaFS.ReadFile("schema/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
	}
	if len(migrations) == 0 {
		return nil, fmt.Errorf("no migrations embedded for dialect %s", dialect)
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	ts := "TIMESTAMPTZ"
	if m.dialect == orm.SQLite {
		ts = "TIMESTAMP"
	}
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at %s NOT NULL
		)`, migrationsTable, ts))
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	var rows []struct {
		Version   int       `db:"version"`
		AppliedAt time.Time `db:"applied_at"`
	}
	query := fmt.Sprintf("SELECT version, applied_at FROM %s", migrationsTable)
	if err := m.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}

	applied := make(map[int]time.Time, len(rows))
	for _, r := range rows {
		applied[r.Version] = r.AppliedAt
	}
	return applied, nil
}

// Status reports every embedded migration together with its applied time.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	migrations, err := Migrations(m.dialect)
	if err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		st := MigrationStatus{Migration: mig}
		if at, ok := applied[mig.Version]; ok {
			at := at
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// Migrate applies pending migrations, each in its own transaction, and
// returns the names of the ones it applied.
func (m *Migrator) Migrate(ctx context.Context) ([]string, error) {
	log := logger.Migration()

	statuses, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	insert := m.dialect.Builder().
		Insert(migrationsTable).
		Columns("version", "name", "applied_at")

	var done []string
	for _, st := range statuses {
		if st.AppliedAt != nil {
			continue
		}

		tx, err := m.db.BeginTxx(ctx, nil)
		if err != nil {
			return done, fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, st.SQL); err != nil {
			_ = tx.Rollback()
			return done, fmt.Errorf("apply migration %s: %w", st.Name, err)
		}

		query, args, err := insert.Values(st.Version, st.Name, time.Now().UTC()).ToSql()
		if err != nil {
			_ = tx.Rollback()
			return done, fmt.Errorf("build migration record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return done, fmt.Errorf("record migration %s: %w", st.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return done, fmt.Errorf("commit migration %s: %w", st.Name, err)
		}

		log.WithField("migration", st.Name).Info("applied migration")
		done = append(done, st.Name)
	}

	if len(done) == 0 {
		log.Debug("schema is up to date")
	}
	return done, nil
}
