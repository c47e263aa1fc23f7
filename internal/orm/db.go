package orm

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type DBConfig struct {
	Dialect         Dialect
	URL             string
	ConnMaxLifetime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
}

func NewDBConfig(dialect Dialect, url string) *DBConfig {
	return &DBConfig{
		Dialect:         dialect,
		URL:             url,
		ConnMaxLifetime: 10 * time.Minute,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
	}
}

// Connect opens and pings the database. SQLite databases are limited to a
// single connection: writers are serialised by the engine anyway, and an
// in-memory database only exists for the lifetime of its one connection.
func (cfg *DBConfig) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Dialect.DriverName(), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.Dialect == SQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Dialect == SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragmas: %w", err)
		}
	}

	return db, nil
}
