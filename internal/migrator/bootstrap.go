package migrator

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/logger"
)

// EnsureDatabaseExists creates the Postgres database named in dsn when it is
// missing, connecting through the maintenance database on the same server.
func EnsureDatabaseExists(ctx context.Context, dsn string) error {
	dbName, adminDSN, err := splitDSN(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse DSN: %w", err)
	}

	admin, err := sqlx.ConnectContext(ctx, "postgres", adminDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to admin database: %w", err)
	}
	defer admin.Close()

	var exists bool
	if err := admin.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, dbName); err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+quoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("failed to create database %q: %w", dbName, err)
	}
	logger.Migration().WithField("database", dbName).Info("created database")
	return nil
}

// splitDSN returns the database name and a DSN pointing at the postgres
// maintenance database. Both URL and key=value forms are accepted.
func splitDSN(dsn string) (dbName, adminDSN string, err error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", err
		}
		dbName = strings.TrimPrefix(u.Path, "/")
		if dbName == "" {
			return "", "", fmt.Errorf("no database name in URL")
		}
		u.Path = "/postgres"
		return dbName, u.String(), nil
	}

	fields := strings.Fields(dsn)
	for i, kv := range fields {
		key, value, ok := strings.Cut(kv, "=")
		if ok && key == "dbname" {
			dbName = value
			fields[i] = "dbname=postgres"
		}
	}
	if dbName == "" {
		return "", "", fmt.Errorf("no database name found in DSN")
	}
	return dbName, strings.Join(fields, " "), nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
