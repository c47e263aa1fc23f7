package board

import (
	"context"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/events"
)

type AssignResult struct {
	Task *domain.Task
	// Added lists members that were not assigned before this call.
	Added          []string
	AutoProgressed bool
}

// Assign adds members to a task. Members already assigned are skipped. If
// the call gives the task its first assignees while it sits in the default
// lane, the task auto-progresses once.
func (s *Service) Assign(ctx context.Context, actor domain.Actor, cmd domain.AssignTaskCommand) (*AssignResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, s.fail("Assign", err)
	}

	var out *AssignResult
	err := s.mutate(ctx, "Assign", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockActiveTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		res, err := t.assign(ctx, task, cmd.MemberIDs)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

func (t *txn) assign(ctx context.Context, task *domain.Task, memberIDs []string) (*AssignResult, error) {
	memberIDs = unique(memberIDs)
	found, err := t.st.Projects.MembersAmong(ctx, task.ProjectID, memberIDs)
	if err != nil {
		return nil, err
	}
	if missing := difference(memberIDs, found); len(missing) > 0 {
		return nil, domain.InvalidReferences("member", missing)
	}

	before, err := t.st.Assignments.Count(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	res := &AssignResult{Task: task}
	for _, id := range memberIDs {
		added, err := t.st.Assignments.Add(ctx, &domain.Assignment{TaskID: task.ID, MemberID: id, AssignedBy: t.actor.ID})
		if err != nil {
			return nil, err
		}
		if !added {
			continue
		}
		res.Added = append(res.Added, id)
		t.emit(t.event(events.TaskAssigned, task).With("member_id", id))
	}

	if before == 0 && len(res.Added) > 0 {
		moved, err := t.autoProgress(ctx, task)
		if err != nil {
			return nil, err
		}
		res.AutoProgressed = moved
	}
	return res, nil
}

// Unassign removes one member from a task. The task is never moved back.
func (s *Service) Unassign(ctx context.Context, actor domain.Actor, cmd domain.UnassignTaskCommand) error {
	if err := cmd.Validate(); err != nil {
		return s.fail("Unassign", err)
	}
	return s.mutate(ctx, "Unassign", actor, func(ctx context.Context, t *txn) error {
		task, err := t.lockTask(ctx, cmd.TaskID)
		if err != nil {
			return err
		}
		removed, err := t.st.Assignments.Remove(ctx, task.ID, cmd.MemberID)
		if err != nil {
			return err
		}
		if !removed {
			return domain.NotFound("assignment", task.ID+"/"+cmd.MemberID)
		}
		t.emit(t.event(events.TaskUnassigned, task).With("member_id", cmd.MemberID))
		return nil
	})
}

// Assignees lists the members assigned to a task.
func (s *Service) Assignees(ctx context.Context, taskID string) ([]domain.Assignment, error) {
	if _, err := s.store.Tasks.Get(ctx, taskID); err != nil {
		return nil, s.fail("Assignees", notFoundAs(err, "task", taskID))
	}
	out, err := s.store.Assignments.List(ctx, taskID)
	if err != nil {
		return nil, s.fail("Assignees", err)
	}
	return out, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// difference returns the ids of want that are missing from have, in order.
func difference(want, have []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, id := range have {
		set[id] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := set[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
