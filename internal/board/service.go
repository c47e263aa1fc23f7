// Package board is the task board engine: lane registry, dense per-lane
// ordering, status transitions, assignment-driven auto-progression and the
// dependency cycle guard. Every mutation runs in one store transaction under
// a per-project lock; events are published only after commit.
package board

import (
	"context"
	"time"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/events"
	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/store"
)

type Config struct {
	// VerifyDensity re-reads touched lanes after each reorder and fails the
	// operation if positions are not 0..n-1.
	VerifyDensity bool
	Retry         orm.RetryPolicy
	Clock         func() time.Time
}

func DefaultConfig() Config {
	return Config{
		VerifyDensity: true,
		Retry:         orm.DefaultRetryPolicy(),
		Clock:         func() time.Time { return time.Now().UTC() },
	}
}

type Service struct {
	store     *store.Store
	publisher events.Publisher
	cfg       Config
}

// New creates the engine. publisher may be nil when nobody consumes events.
// Row timestamps written through st follow cfg.Clock.
func New(st *store.Store, publisher events.Publisher, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = DefaultConfig().Clock
	}
	st.SetClock(cfg.Clock)
	return &Service{store: st, publisher: publisher, cfg: cfg}
}

// txn is the state of one attempt of one mutating operation.
type txn struct {
	svc    *Service
	st     *store.Store
	actor  domain.Actor
	now    time.Time
	events events.Buffer
}

func (t *txn) emit(e ...events.Event) { t.events.Add(e...) }

func (t *txn) event(kind events.Kind, task *domain.Task) events.Event {
	return events.New(kind, t.actor, task, t.now)
}

// mutate runs fn in a transaction, retrying transient store failures, and
// publishes the buffered events once the transaction has committed.
func (s *Service) mutate(ctx context.Context, op string, actor domain.Actor, fn func(ctx context.Context, t *txn) error) error {
	if err := actor.Validate(); err != nil {
		return s.fail(op, err)
	}

	var committed []events.Event
	err := orm.WithRetry(ctx, s.cfg.Retry, func(ctx context.Context) error {
		return s.store.WithTransaction(ctx, func(st *store.Store) error {
			t := &txn{svc: s, st: st, actor: actor, now: s.cfg.Clock()}
			if err := fn(ctx, t); err != nil {
				return err
			}
			committed = t.events.Events()
			return nil
		})
	})
	if err != nil {
		err = s.fail(op, err)
		logger.Board().WithError(err).WithFields(map[string]interface{}{
			"op":    op,
			"actor": actor.ID,
		}).Debug("operation failed")
		return err
	}

	if s.publisher != nil && len(committed) > 0 {
		s.publisher.Publish(committed)
	}
	return nil
}

// lockTask loads a task, takes its project lock and re-reads the task so the
// caller sees the state it now owns.
func (t *txn) lockTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := t.st.Tasks.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "task", id)
	}
	if err := t.lockProject(ctx, task.ProjectID); err != nil {
		return nil, err
	}
	task, err = t.st.Tasks.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "task", id)
	}
	return task, nil
}

// lockStatus is lockTask for lanes: the lane is read again once its project
// is locked.
func (t *txn) lockStatus(ctx context.Context, id string) (*domain.Status, error) {
	st, err := t.status(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.lockProject(ctx, st.ProjectID); err != nil {
		return nil, err
	}
	return t.status(ctx, id)
}

func (t *txn) lockProject(ctx context.Context, projectID string) error {
	if err := t.st.Projects.Lock(ctx, projectID); err != nil {
		return notFoundAs(err, "project", projectID)
	}
	return nil
}

// lockActiveTask is lockTask for operations that archived tasks refuse.
func (t *txn) lockActiveTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := t.lockTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.IsArchived() {
		return nil, domain.Validation("task %s is archived", id)
	}
	return task, nil
}

func (t *txn) status(ctx context.Context, id string) (*domain.Status, error) {
	st, err := t.st.Statuses.Get(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "status", id)
	}
	return st, nil
}

func checkVersion(task *domain.Task, expected *int) error {
	if expected != nil && *expected != task.Version {
		return domain.Conflict("task "+task.ID+" was modified concurrently", nil)
	}
	return nil
}
