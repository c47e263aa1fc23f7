// Package app wires a database, the board engine and the event sinks into
// one runnable unit.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/eleven-am/taskboard/internal/board"
	"github.com/eleven-am/taskboard/internal/events"
	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/migrator"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/store"
)

type Config struct {
	Dialect         orm.Dialect
	DatabaseURL     string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	// AutoMigrate applies pending schema migrations on Open.
	AutoMigrate bool

	VerifyDensity bool
	Retry         orm.RetryPolicy

	Events events.Options
	// RedisURL enables the notification sink when set.
	RedisURL    string
	RedisPrefix string
	RedisKeep   int64
	RedisTTL    time.Duration
	LogEvents   bool
}

type App struct {
	DB         *sqlx.DB
	Store      *store.Store
	Board      *board.Service
	Dispatcher *events.Dispatcher

	redis *redis.Client
}

func Open(ctx context.Context, cfg Config) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database url is required")
	}
	dbCfg := orm.NewDBConfig(cfg.Dialect, cfg.DatabaseURL)
	if cfg.MaxOpenConns > 0 {
		dbCfg.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		dbCfg.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	db, err := dbCfg.Connect(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		applied, err := migrator.New(db, cfg.Dialect).Migrate(ctx)
		if err != nil {
			db.Close()
			return nil, err
		}
		if len(applied) > 0 {
			logger.Migration().Infof("applied %d migration(s)", len(applied))
		}
	}

	a := &App{DB: db, Store: store.New(db, cfg.Dialect)}

	sinks := []events.Sink{events.NewActivitySink(a.Store.Activity)}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.redis.Close()
			db.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		sinks = append(sinks, events.NewRedisSink(a.redis, cfg.RedisPrefix, cfg.RedisKeep, cfg.RedisTTL))
	}
	if cfg.LogEvents {
		sinks = append(sinks, events.LogSink{})
	}
	a.Dispatcher = events.NewDispatcher(cfg.Events, sinks...)

	boardCfg := board.DefaultConfig()
	boardCfg.VerifyDensity = cfg.VerifyDensity
	if cfg.Retry.Attempts > 0 {
		boardCfg.Retry = cfg.Retry
	}
	a.Board = board.New(a.Store, a.Dispatcher, boardCfg)

	logger.DB().WithFields(map[string]interface{}{
		"dialect": cfg.Dialect,
		"redis":   a.redis != nil,
	}).Debug("taskboard opened")
	return a, nil
}

// Close drains pending events before releasing the connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Dispatcher.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
