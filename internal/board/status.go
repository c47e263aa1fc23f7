package board

import (
	"context"
	"errors"
	"strings"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/events"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/store"
)

// LaneSpec describes a lane created together with its project.
type LaneSpec struct {
	Name        string
	Color       string
	IsDefault   bool
	IsCompleted bool
}

// DefaultLanes is used when a project is created without explicit lanes.
var DefaultLanes = []LaneSpec{
	{Name: "To Do", Color: "#94a3b8", IsDefault: true},
	{Name: "In Progress", Color: "#3b82f6"},
	{Name: "Done", Color: "#22c55e", IsCompleted: true},
}

func validateLanes(lanes []LaneSpec) error {
	names := make(map[string]struct{}, len(lanes))
	defaults := 0
	for _, l := range lanes {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			return domain.Validation("lane name is required")
		}
		if _, dup := names[name]; dup {
			return domain.Validation("lane %q is listed twice", name)
		}
		names[name] = struct{}{}
		if l.IsDefault && l.IsCompleted {
			return domain.Validation("lane %q cannot be both default and completed", name)
		}
		if l.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return domain.Validation("a project has exactly one default lane, %d given", defaults)
	}
	return nil
}

// CreateStatus appends a lane to a project. The first lane of a project
// becomes its default; a new default demotes the previous one.
func (s *Service) CreateStatus(ctx context.Context, actor domain.Actor, cmd domain.CreateStatusCommand) (*domain.Status, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("CreateStatus", err)
	}

	var out *domain.Status
	err := s.mutate(ctx, "CreateStatus", actor, func(ctx context.Context, t *txn) error {
		if err := t.lockProject(ctx, cmd.ProjectID); err != nil {
			return err
		}
		lanes, err := t.st.Statuses.List(ctx, cmd.ProjectID)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(cmd.Name)
		for _, l := range lanes {
			if l.Name == name {
				return domain.Validation("status %q already exists", name)
			}
		}

		st := &domain.Status{
			ProjectID:   cmd.ProjectID,
			Name:        name,
			Color:       cmd.Color,
			IsDefault:   cmd.IsDefault || len(lanes) == 0,
			IsCompleted: cmd.IsCompleted,
		}
		if st.IsDefault && st.IsCompleted {
			return domain.Validation("the first lane of a project becomes its default and cannot be completed")
		}
		if st.Position, err = t.st.Statuses.NextPosition(ctx, cmd.ProjectID); err != nil {
			return err
		}
		if st.IsDefault {
			if err := t.st.Statuses.ClearDefault(ctx, cmd.ProjectID); err != nil {
				return err
			}
		}
		if err := t.st.Statuses.Create(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	return out, err
}

// UpdateStatus renames, recolours or reflags a lane. Changing the completed
// flag re-stamps completed_at for every task in the lane.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, cmd domain.UpdateStatusCommand) (*domain.Status, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("UpdateStatus", err)
	}

	var out *domain.Status
	err := s.mutate(ctx, "UpdateStatus", actor, func(ctx context.Context, t *txn) error {
		st, err := t.lockStatus(ctx, cmd.StatusID)
		if err != nil {
			return err
		}

		if cmd.Name != nil {
			name := strings.TrimSpace(*cmd.Name)
			if name != st.Name {
				lanes, err := t.st.Statuses.List(ctx, st.ProjectID)
				if err != nil {
					return err
				}
				for _, l := range lanes {
					if l.Name == name {
						return domain.Validation("status %q already exists", name)
					}
				}
			}
			st.Name = name
		}
		if cmd.Color != nil {
			st.Color = *cmd.Color
		}

		wasCompleted := st.IsCompleted
		if cmd.IsCompleted != nil {
			st.IsCompleted = *cmd.IsCompleted
		}

		promote := false
		if cmd.IsDefault != nil {
			switch {
			case *cmd.IsDefault && !st.IsDefault:
				promote = true
				st.IsDefault = true
			case !*cmd.IsDefault && st.IsDefault:
				return domain.Configuration("project %s needs a default lane; promote another lane instead", st.ProjectID)
			}
		}
		if st.IsDefault && st.IsCompleted {
			return domain.Validation("the default lane cannot be completed")
		}

		if promote {
			if err := t.st.Statuses.ClearDefault(ctx, st.ProjectID); err != nil {
				return err
			}
		}
		if err := t.st.Statuses.Update(ctx, st); err != nil {
			return err
		}

		if wasCompleted != st.IsCompleted {
			stamp := &t.now
			if !st.IsCompleted {
				stamp = nil
			}
			if err := t.st.Tasks.SetCompletedForStatus(ctx, st.ID, stamp); err != nil {
				return err
			}
		}
		out = st
		return nil
	})
	return out, err
}

// ReorderStatuses rewrites lane positions to the given order, which must
// name every lane of the project exactly once.
func (s *Service) ReorderStatuses(ctx context.Context, actor domain.Actor, cmd domain.ReorderStatusesCommand) ([]domain.Status, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("ReorderStatuses", err)
	}

	var out []domain.Status
	err := s.mutate(ctx, "ReorderStatuses", actor, func(ctx context.Context, t *txn) error {
		if err := t.lockProject(ctx, cmd.ProjectID); err != nil {
			return err
		}
		lanes, err := t.st.Statuses.List(ctx, cmd.ProjectID)
		if err != nil {
			return err
		}
		existing := make([]string, len(lanes))
		for i, l := range lanes {
			existing[i] = l.ID
		}
		if foreign := difference(cmd.StatusIDs, existing); len(foreign) > 0 {
			return domain.InvalidReferences("status", foreign)
		}
		if missing := difference(existing, cmd.StatusIDs); len(missing) > 0 {
			return &domain.Error{Kind: domain.ErrValidation, Entity: "status", IDs: missing, Message: "missing from the new order"}
		}

		for i, id := range cmd.StatusIDs {
			if err := t.st.Statuses.SetPosition(ctx, id, i); err != nil {
				return err
			}
		}
		out, err = t.st.Statuses.List(ctx, cmd.ProjectID)
		return err
	})
	return out, err
}

// DeleteStatus removes a lane. Its tasks move to the tail of the default
// lane in their current order. The default lane itself cannot be deleted.
func (s *Service) DeleteStatus(ctx context.Context, actor domain.Actor, cmd domain.DeleteStatusCommand) error {
	if err := cmd.Validate(); err != nil {
		return s.fail("DeleteStatus", err)
	}
	return s.mutate(ctx, "DeleteStatus", actor, func(ctx context.Context, t *txn) error {
		st, err := t.lockStatus(ctx, cmd.StatusID)
		if err != nil {
			return err
		}
		if st.IsDefault {
			return domain.Configuration("the default lane %s cannot be deleted", st.ID)
		}
		def, err := t.defaultLane(ctx, st.ProjectID)
		if err != nil {
			return err
		}

		tasks, err := t.st.Tasks.InLane(ctx, store.Lane{ProjectID: st.ProjectID, StatusID: st.ID})
		if err != nil {
			return err
		}
		for i := range tasks {
			task := &tasks[i]
			if task.IsArchived() {
				if err := t.st.Tasks.Relocate(ctx, task.ID, def.ID, nil); err != nil {
					return err
				}
				continue
			}
			// Earlier moves shifted the remaining tasks of the lane.
			cur, err := t.st.Tasks.Get(ctx, task.ID)
			if err != nil {
				return err
			}
			if err := t.transition(ctx, cur, st, def, nil, events.TaskMoved); err != nil {
				return err
			}
		}

		if err := t.st.Statuses.Delete(ctx, st.ID); err != nil {
			return err
		}
		lanes, err := t.st.Statuses.List(ctx, st.ProjectID)
		if err != nil {
			return err
		}
		for i, l := range lanes {
			if l.Position != i {
				if err := t.st.Statuses.SetPosition(ctx, l.ID, i); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Lanes lists a project's lanes in board order.
func (s *Service) Lanes(ctx context.Context, projectID string) ([]domain.Status, error) {
	if _, err := s.store.Projects.Get(ctx, projectID); err != nil {
		return nil, s.fail("Lanes", notFoundAs(err, "project", projectID))
	}
	out, err := s.store.Statuses.List(ctx, projectID)
	if err != nil {
		return nil, s.fail("Lanes", err)
	}
	return out, nil
}

func (t *txn) defaultLane(ctx context.Context, projectID string) (*domain.Status, error) {
	def, err := t.st.Statuses.Default(ctx, projectID)
	if errors.Is(err, orm.ErrNotFound) {
		return nil, domain.Configuration("project %s has no default lane", projectID)
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}
