// Package testing provides database fixtures for taskboard tests: a migrated
// in-memory SQLite database for unit tests and a throwaway Postgres database
// for integration tests.
package testing

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/migrator"
	"github.com/eleven-am/taskboard/internal/orm"
)

// PostgresURLEnv names the server used by Postgres integration tests.
const PostgresURLEnv = "TASKBOARD_TEST_POSTGRES_URL"

// SQLite returns a migrated in-memory database closed at the end of the test.
func SQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := orm.NewDBConfig(orm.SQLite, ":memory:").Connect(ctx)
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrator.New(db, orm.SQLite).Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate sqlite: %v", err)
	}
	return db
}

// TestDB is a freshly created, migrated Postgres database
type TestDB struct {
	DB      *sqlx.DB
	DBName  string
	ConnStr string

	adminConnStr string
	t            *testing.T
}

// NewTestDB creates a new test database on the server named by
// TASKBOARD_TEST_POSTGRES_URL. The test is skipped when the variable is unset
// or in short mode.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	base := os.Getenv(PostgresURLEnv)
	if base == "" {
		t.Skipf("%s is not set", PostgresURLEnv)
	}

	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("Invalid %s: %v", PostgresURLEnv, err)
	}
	dbName := fmt.Sprintf("taskboard_test_%d", time.Now().UnixNano())
	u.Path = "/" + dbName
	connStr := u.String()

	ctx := context.Background()
	if err := migrator.EnsureDatabaseExists(ctx, connStr); err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	tdb := &TestDB{DBName: dbName, ConnStr: connStr, adminConnStr: base, t: t}
	t.Cleanup(tdb.Cleanup)

	tdb.DB, err = orm.NewDBConfig(orm.Postgres, connStr).Connect(ctx)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := migrator.New(tdb.DB, orm.Postgres).Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return tdb
}

// Cleanup drops the test database
func (tdb *TestDB) Cleanup() {
	if tdb.DB != nil {
		tdb.DB.Close()
	}

	db, err := sqlx.Open("postgres", tdb.adminConnStr)
	if err != nil {
		tdb.t.Logf("Failed to connect for cleanup: %v", err)
		return
	}
	defer db.Close()

	_, err = db.Exec(`
		SELECT pg_terminate_backend(pg_stat_activity.pid)
		FROM pg_stat_activity
		WHERE pg_stat_activity.datname = $1
		AND pid <> pg_backend_pid()
	`, tdb.DBName)
	if err != nil {
		tdb.t.Logf("Failed to terminate connections: %v", err)
	}

	if _, err := db.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", tdb.DBName)); err != nil {
		tdb.t.Logf("Failed to drop test database: %v", err)
	}
}

// IndexExists checks if an index exists
func (tdb *TestDB) IndexExists(indexName string) (bool, error) {
	var exists bool
	err := tdb.DB.Get(&exists, `
		SELECT EXISTS (
			SELECT 1
			FROM pg_indexes
			WHERE schemaname = 'public'
			AND indexname = $1
		)
	`, indexName)
	return exists, err
}
