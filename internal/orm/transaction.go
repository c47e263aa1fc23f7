package orm

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/logger"
)

// TransactionOptions configures transaction behavior
type TransactionOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// DefaultTransactionOptions returns sensible defaults
func DefaultTransactionOptions() *TransactionOptions {
	return &TransactionOptions{
		Isolation: sql.LevelDefault,
		ReadOnly:  false,
	}
}

// ToTxOptions converts TransactionOptions to sql.TxOptions
func (o *TransactionOptions) ToTxOptions() *sql.TxOptions {
	if o == nil {
		return nil
	}
	return &sql.TxOptions{
		Isolation: o.Isolation,
		ReadOnly:  o.ReadOnly,
	}
}

// TransactionManager runs callbacks inside a single database transaction.
type TransactionManager struct {
	db *sqlx.DB
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *sqlx.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction executes a function within a transaction
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return tm.WithTransactionOptions(ctx, nil, fn)
}

// WithTransactionOptions executes a function within a transaction with options.
// The transaction commits when fn returns nil and rolls back otherwise,
// including when fn panics.
func (tm *TransactionManager) WithTransactionOptions(ctx context.Context, opts *TransactionOptions, fn func(*sqlx.Tx) error) error {
	if opts == nil {
		opts = DefaultTransactionOptions()
	}

	tx, err := tm.db.BeginTxx(ctx, opts.ToTxOptions())
	if err != nil {
		return ParseError(fmt.Errorf("failed to begin transaction: %w", err), "begin", "")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ParseError(fmt.Errorf("failed to commit: %w", err), "commit", "")
	}

	return nil
}

// RetryPolicy bounds how often a transaction is re-run after a transient
// store failure such as a deadlock.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy retries once after 50ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 2, Backoff: 50 * time.Millisecond}
}

// WithRetry runs fn, re-running it while it fails with a transient error and
// attempts remain. The last error is returned unchanged.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !IsTransient(err) || attempt == policy.Attempts {
			return err
		}

		logger.DB().WithError(err).WithField("attempt", attempt).Warn("transient store error, retrying transaction")

		timer := time.NewTimer(policy.Backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
