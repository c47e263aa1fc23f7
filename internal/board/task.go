package board

import (
	"context"
	"strings"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/events"
	"github.com/eleven-am/taskboard/internal/store"
)

// CreateTask inserts a task at the tail of the project's default lane.
// Initial assignees and labels are applied in the same transaction, so a
// task created with assignees auto-progresses immediately.
func (s *Service) CreateTask(ctx context.Context, actor domain.Actor, cmd domain.CreateTaskCommand) (*domain.Task, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("CreateTask", err)
	}

	var out *domain.Task
	err := s.mutate(ctx, "CreateTask", actor, func(ctx context.Context, t *txn) error {
		if err := t.lockProject(ctx, cmd.ProjectID); err != nil {
			return err
		}
		lane, err := t.defaultLane(ctx, cmd.ProjectID)
		if err != nil {
			return err
		}

		if cmd.ParentTaskID != nil {
			parent, err := t.st.Tasks.Get(ctx, *cmd.ParentTaskID)
			if err != nil {
				return notFoundAs(err, "task", *cmd.ParentTaskID)
			}
			if parent.ProjectID != cmd.ProjectID {
				return domain.Validation("parent task %s belongs to another project", parent.ID)
			}
			if parent.ParentTaskID != nil {
				return domain.Validation("task %s is already a subtask", parent.ID)
			}
		}

		labelIDs := unique(cmd.LabelIDs)
		if len(labelIDs) > 0 {
			found, err := t.st.Labels.InProject(ctx, cmd.ProjectID, labelIDs)
			if err != nil {
				return err
			}
			if missing := difference(labelIDs, found); len(missing) > 0 {
				return domain.InvalidReferences("label", missing)
			}
		}

		task := &domain.Task{
			ProjectID:    cmd.ProjectID,
			StatusID:     lane.ID,
			Title:        strings.TrimSpace(cmd.Title),
			Description:  cmd.Description,
			Priority:     cmd.Priority,
			DueDate:      cmd.DueDate,
			CreatedBy:    actor.ID,
			ParentTaskID: cmd.ParentTaskID,
		}
		task.Position, err = t.insertPosition(ctx, laneOf(task))
		if err != nil {
			return err
		}
		if err := t.st.Tasks.Create(ctx, task); err != nil {
			return err
		}
		t.emit(t.event(events.TaskCreated, task).
			Transition("", lane.ID).
			With("position", task.Position))

		for _, id := range labelIDs {
			if _, err := t.st.Labels.Tag(ctx, &domain.Tag{TaskID: task.ID, LabelID: id}); err != nil {
				return err
			}
		}
		if len(cmd.AssigneeIDs) > 0 {
			if _, err := t.assign(ctx, task, cmd.AssigneeIDs); err != nil {
				return err
			}
		}
		out = task
		return nil
	})
	return out, err
}

// UpdateTask edits the descriptive fields of an active task.
func (s *Service) UpdateTask(ctx context.Context, actor domain.Actor, cmd domain.UpdateTaskCommand) (*domain.Task, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("UpdateTask", err)
	}

	var out *domain.Task
	err := s.mutate(ctx, "UpdateTask", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockActiveTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		if err := checkVersion(task, cmd.ExpectedVersion); err != nil {
			return err
		}

		var changed []string
		if cmd.Title != nil {
			if title := strings.TrimSpace(*cmd.Title); title != task.Title {
				task.Title = title
				changed = append(changed, "title")
			}
		}
		if cmd.Description != nil {
			task.Description = cmd.Description
			changed = append(changed, "description")
		}
		if cmd.Priority != nil && *cmd.Priority != task.Priority {
			task.Priority = *cmd.Priority
			changed = append(changed, "priority")
		}
		switch {
		case cmd.ClearDueDate && task.DueDate != nil:
			task.DueDate = nil
			changed = append(changed, "due_date")
		case cmd.DueDate != nil:
			due := cmd.DueDate.UTC()
			task.DueDate = &due
			changed = append(changed, "due_date")
		}
		if len(changed) == 0 {
			out = task
			return nil
		}

		if err := t.st.Tasks.Update(ctx, task); err != nil {
			return err
		}
		t.emit(t.event(events.TaskUpdated, task).With("fields", changed))
		out = task
		return nil
	})
	return out, err
}

// ArchiveTask hides a task from its lane and closes the gap it leaves. The
// task keeps its lane so that RestoreTask can bring it back.
func (s *Service) ArchiveTask(ctx context.Context, actor domain.Actor, cmd domain.ArchiveTaskCommand) (*domain.Task, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("ArchiveTask", err)
	}

	var out *domain.Task
	err := s.mutate(ctx, "ArchiveTask", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockActiveTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		if err := t.st.Tasks.Archive(ctx, task.ID, t.now); err != nil {
			return err
		}
		if err := t.closeGap(ctx, laneOf(task), task.Position); err != nil {
			return err
		}
		at := t.now
		task.ArchivedAt = &at
		task.Version++
		t.emit(t.event(events.TaskArchived, task).With("position", task.Position))
		out = task
		return nil
	})
	return out, err
}

// RestoreTask returns an archived task to the tail of its lane.
func (s *Service) RestoreTask(ctx context.Context, actor domain.Actor, cmd domain.RestoreTaskCommand) (*domain.Task, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("RestoreTask", err)
	}

	var out *domain.Task
	err := s.mutate(ctx, "RestoreTask", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		if !task.IsArchived() {
			return domain.Validation("task %s is not archived", task.ID)
		}
		pos, err := t.insertPosition(ctx, laneOf(task))
		if err != nil {
			return err
		}
		if err := t.st.Tasks.Restore(ctx, task.ID, pos); err != nil {
			return err
		}
		task.ArchivedAt = nil
		task.Position = pos
		task.Version++
		t.emit(t.event(events.TaskRestored, task).With("position", pos))
		out = task
		return nil
	})
	return out, err
}

// DeleteTask removes a task, its subtasks and every row that references
// them. Active tasks leave their lanes dense.
func (s *Service) DeleteTask(ctx context.Context, actor domain.Actor, cmd domain.DeleteTaskCommand) error {
	if err := cmd.Validate(); err != nil {
		return s.fail("DeleteTask", err)
	}
	return s.mutate(ctx, "DeleteTask", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		subtasks, err := t.st.Tasks.Subtasks(ctx, task.ID)
		if err != nil {
			return err
		}
		for _, sub := range subtasks {
			if err := t.deleteTask(ctx, sub.ID); err != nil {
				return err
			}
		}
		return t.deleteTask(ctx, task.ID)
	})
}

// deleteTask re-reads the task since earlier deletions may have shifted it.
func (t *txn) deleteTask(ctx context.Context, id string) error {
	task, err := t.st.Tasks.Get(ctx, id)
	if err != nil {
		return notFoundAs(err, "task", id)
	}
	if err := t.st.Dependencies.DeleteIncident(ctx, id); err != nil {
		return err
	}
	if err := t.st.Assignments.DeleteForTask(ctx, id); err != nil {
		return err
	}
	if err := t.st.Labels.DeleteTags(ctx, id); err != nil {
		return err
	}
	if err := t.st.Tasks.Delete(ctx, id); err != nil {
		return err
	}
	if !task.IsArchived() {
		if err := t.closeGap(ctx, laneOf(task), task.Position); err != nil {
			return err
		}
	}
	t.emit(t.event(events.TaskDeleted, task).With("title", task.Title))
	return nil
}

// Tag attaches project labels to a task. Labels already attached are skipped.
func (s *Service) Tag(ctx context.Context, actor domain.Actor, cmd domain.TagTaskCommand) ([]string, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("Tag", err)
	}

	var added []string
	err := s.mutate(ctx, "Tag", actor, func(ctx context.Context, t *txn) error {
		added = nil
		task, err := t.lockTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		ids := unique(cmd.LabelIDs)
		found, err := t.st.Labels.InProject(ctx, task.ProjectID, ids)
		if err != nil {
			return err
		}
		if missing := difference(ids, found); len(missing) > 0 {
			return domain.InvalidReferences("label", missing)
		}
		for _, id := range ids {
			ok, err := t.st.Labels.Tag(ctx, &domain.Tag{TaskID: task.ID, LabelID: id})
			if err != nil {
				return err
			}
			if ok {
				added = append(added, id)
			}
		}
		return nil
	})
	return added, err
}

func (s *Service) Untag(ctx context.Context, actor domain.Actor, cmd domain.UntagTaskCommand) error {
	if err := cmd.Validate(); err != nil {
		return s.fail("Untag", err)
	}
	return s.mutate(ctx, "Untag", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		removed, err := t.st.Labels.Untag(ctx, task.ID, cmd.LabelID)
		if err != nil {
			return err
		}
		if !removed {
			return domain.NotFound("tag", task.ID+"/"+cmd.LabelID)
		}
		return nil
	})
}

// Board is the read model of a project: its lanes in order, each with its
// active tasks in position order.
type Board struct {
	Project *domain.Project `json:"project"`
	Lanes   []Lane          `json:"lanes"`
}

type Lane struct {
	Status domain.Status `json:"status"`
	Tasks  []domain.Task `json:"tasks"`
}

func (s *Service) Board(ctx context.Context, projectID string) (*Board, error) {
	var (
		project  *domain.Project
		statuses []domain.Status
		tasks    []domain.Task
	)
	err := s.store.Snapshot(ctx, func(st *store.Store) error {
		var err error
		if project, err = st.Projects.Get(ctx, projectID); err != nil {
			return notFoundAs(err, "project", projectID)
		}
		if statuses, err = st.Statuses.List(ctx, projectID); err != nil {
			return err
		}
		tasks, err = st.Tasks.ActiveInProject(ctx, projectID)
		return err
	})
	if err != nil {
		return nil, s.fail("Board", err)
	}

	byStatus := make(map[string][]domain.Task, len(statuses))
	for _, task := range tasks {
		byStatus[task.StatusID] = append(byStatus[task.StatusID], task)
	}
	b := &Board{Project: project, Lanes: make([]Lane, 0, len(statuses))}
	for _, st := range statuses {
		b.Lanes = append(b.Lanes, Lane{Status: st, Tasks: byStatus[st.ID]})
	}
	return b, nil
}

func (s *Service) Task(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.store.Tasks.Get(ctx, id)
	if err != nil {
		return nil, s.fail("Task", notFoundAs(err, "task", id))
	}
	return task, nil
}

func (s *Service) Tags(ctx context.Context, taskID string) ([]domain.Tag, error) {
	out, err := s.store.Labels.Tags(ctx, taskID)
	if err != nil {
		return nil, s.fail("Tags", err)
	}
	return out, nil
}

// Activity returns the persisted audit trail of a task, oldest first.
func (s *Service) Activity(ctx context.Context, taskID string) ([]domain.ActivityRecord, error) {
	out, err := s.store.Activity.ForTask(ctx, taskID)
	if err != nil {
		return nil, s.fail("Activity", err)
	}
	return out, nil
}
