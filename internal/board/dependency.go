package board

import (
	"context"
	"errors"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/events"
	"github.com/eleven-am/taskboard/internal/orm"
)

// AddDependency records that cmd.TaskID depends on cmd.DependsOnTaskID.
// Edges that would close a cycle are rejected.
func (s *Service) AddDependency(ctx context.Context, actor domain.Actor, cmd domain.AddDependencyCommand) (*domain.Dependency, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("AddDependency", err)
	}

	var out *domain.Dependency
	err := s.mutate(ctx, "AddDependency", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		dependsOn, err := t.st.Tasks.Get(ctx, cmd.DependsOnTaskID)
		if err != nil {
			return notFoundAs(err, "task", cmd.DependsOnTaskID)
		}
		if dependsOn.ProjectID != task.ProjectID {
			return domain.Validation("task %s belongs to another project", dependsOn.ID)
		}
		if task.ID == dependsOn.ID {
			return domain.Cycle(task.ID, dependsOn.ID)
		}

		cyclic, err := t.reachable(ctx, dependsOn.ID, task.ID)
		if err != nil {
			return err
		}
		if cyclic {
			return domain.Cycle(task.ID, dependsOn.ID)
		}

		dep := &domain.Dependency{
			TaskID:          task.ID,
			DependsOnTaskID: dependsOn.ID,
			Type:            cmd.Type,
			CreatedBy:       t.actor.ID,
		}
		if err := t.st.Dependencies.Add(ctx, dep); err != nil {
			if errors.Is(err, orm.ErrDuplicateKey) {
				return domain.Validation("dependency %s -> %s (%s) already exists", task.ID, dependsOn.ID, cmd.Type)
			}
			return err
		}

		t.emit(t.event(events.DependencyAdded, task).
			With("depends_on_task_id", dependsOn.ID).
			With("type", string(cmd.Type)))
		out = dep
		return nil
	})
	return out, err
}

// reachable walks depends-on edges breadth first from start, one query per
// level, and reports whether target is reached. Each task is expanded once.
func (t *txn) reachable(ctx context.Context, start, target string) (bool, error) {
	visited := map[string]bool{start: true}
	frontier := []string{start}

	for len(frontier) > 0 {
		next, err := t.st.Dependencies.DependsOn(ctx, frontier)
		if err != nil {
			return false, err
		}
		frontier = frontier[:0]
		for _, id := range next {
			if id == target {
				return true, nil
			}
			if visited[id] {
				continue
			}
			visited[id] = true
			frontier = append(frontier, id)
		}
	}
	return false, nil
}

func (s *Service) RemoveDependency(ctx context.Context, actor domain.Actor, cmd domain.RemoveDependencyCommand) error {
	if err := cmd.Validate(); err != nil {
		return s.fail("RemoveDependency", err)
	}
	return s.mutate(ctx, "RemoveDependency", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		removed, err := t.st.Dependencies.Remove(ctx, task.ID, cmd.DependsOnTaskID, cmd.Type)
		if err != nil {
			return err
		}
		if !removed {
			return domain.NotFound("dependency", task.ID+"->"+cmd.DependsOnTaskID)
		}
		return nil
	})
}

// Dependencies lists edges touching the task in either direction.
func (s *Service) Dependencies(ctx context.Context, taskID string) ([]domain.Dependency, error) {
	if _, err := s.store.Tasks.Get(ctx, taskID); err != nil {
		return nil, s.fail("Dependencies", notFoundAs(err, "task", taskID))
	}
	out, err := s.store.Dependencies.ForTask(ctx, taskID)
	if err != nil {
		return nil, s.fail("Dependencies", err)
	}
	return out, nil
}
