package board

import (
	"context"
	"errors"
	"time"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/events"
	"github.com/eleven-am/taskboard/internal/orm"
)

// MoveTask moves a task to a lane and position. Entering a completed lane
// from a non-completed one requires the actor to be an assignee or hold a
// lead, owner or admin role.
func (s *Service) MoveTask(ctx context.Context, actor domain.Actor, cmd domain.MoveTaskCommand) (*domain.Task, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("MoveTask", err)
	}

	var out *domain.Task
	err := s.mutate(ctx, "MoveTask", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockActiveTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		if err := checkVersion(task, cmd.ExpectedVersion); err != nil {
			return err
		}
		from, err := t.status(ctx, task.StatusID)
		if err != nil {
			return err
		}
		to, err := t.status(ctx, cmd.StatusID)
		if err != nil {
			return err
		}
		if err := t.transition(ctx, task, from, to, cmd.Position, events.TaskMoved); err != nil {
			return err
		}
		out = task
		return nil
	})
	return out, err
}

// completionStamp derives completed_at for a task entering lane to.
func completionStamp(task *domain.Task, from, to *domain.Status, now time.Time) *time.Time {
	if !to.IsCompleted {
		return nil
	}
	if from.IsCompleted && task.CompletedAt != nil {
		return task.CompletedAt
	}
	return &now
}

// transition is the single path for every lane change, user or system.
func (t *txn) transition(ctx context.Context, task *domain.Task, from, to *domain.Status, pos *int, kind events.Kind) error {
	if to.IsCompleted && !from.IsCompleted {
		if err := t.authorizeCompletion(ctx, task); err != nil {
			return err
		}
	}

	oldPos := task.Position
	final, err := t.move(ctx, task, to, pos, completionStamp(task, from, to, t.now))
	if err != nil {
		return err
	}
	if from.ID == to.ID && final == oldPos {
		return nil
	}

	t.emit(t.event(kind, task).
		Transition(from.ID, to.ID).
		With("from_position", oldPos).
		With("position", final))
	if to.IsCompleted && !from.IsCompleted {
		t.emit(t.event(events.TaskCompleted, task).Transition(from.ID, to.ID))
	}
	return nil
}

func (t *txn) authorizeCompletion(ctx context.Context, task *domain.Task) error {
	if t.actor.Privileged() {
		return nil
	}
	assigned, err := t.st.Assignments.IsAssigned(ctx, task.ID, t.actor.ID)
	if err != nil {
		return err
	}
	if !assigned {
		return domain.Permission("only assignees or project leads may complete task %s", task.ID)
	}
	return nil
}

// autoProgress moves a task out of the default lane into the first
// intermediate lane. It is a no-op when the task is elsewhere or the project
// has no intermediate lane.
func (t *txn) autoProgress(ctx context.Context, task *domain.Task) (bool, error) {
	from, err := t.status(ctx, task.StatusID)
	if err != nil {
		return false, err
	}
	if !from.IsDefault {
		return false, nil
	}
	to, err := t.st.Statuses.FirstIntermediate(ctx, task.ProjectID)
	if errors.Is(err, orm.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	system := &txn{svc: t.svc, st: t.st, actor: domain.SystemActor, now: t.now}
	if err := system.transition(ctx, task, from, to, nil, events.TaskAutoProgressed); err != nil {
		return false, err
	}
	t.emit(system.events.Events()...)
	return true, nil
}
