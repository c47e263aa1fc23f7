package board

import (
	"context"
	"fmt"

	"github.com/eleven-am/taskboard/internal/domain"
)

// Execute runs a typed command, such as one produced by
// domain.DecodeToolCall, and returns the operation's result.
func (s *Service) Execute(ctx context.Context, actor domain.Actor, cmd domain.Command) (interface{}, error) {
	switch c := cmd.(type) {
	case domain.CreateTaskCommand:
		return result(s.CreateTask(ctx, actor, c))
	case domain.UpdateTaskCommand:
		return result(s.UpdateTask(ctx, actor, c))
	case domain.MoveTaskCommand:
		return result(s.MoveTask(ctx, actor, c))
	case domain.AssignTaskCommand:
		return result(s.Assign(ctx, actor, c))
	case domain.UnassignTaskCommand:
		return nil, s.Unassign(ctx, actor, c)
	case domain.AddDependencyCommand:
		return result(s.AddDependency(ctx, actor, c))
	case domain.RemoveDependencyCommand:
		return nil, s.RemoveDependency(ctx, actor, c)
	case domain.TagTaskCommand:
		return result(s.Tag(ctx, actor, c))
	case domain.UntagTaskCommand:
		return nil, s.Untag(ctx, actor, c)
	case domain.ArchiveTaskCommand:
		return result(s.ArchiveTask(ctx, actor, c))
	case domain.RestoreTaskCommand:
		return result(s.RestoreTask(ctx, actor, c))
	case domain.DeleteTaskCommand:
		return nil, s.DeleteTask(ctx, actor, c)
	case domain.CreateStatusCommand:
		return result(s.CreateStatus(ctx, actor, c))
	case domain.UpdateStatusCommand:
		return result(s.UpdateStatus(ctx, actor, c))
	case domain.ReorderStatusesCommand:
		return result(s.ReorderStatuses(ctx, actor, c))
	case domain.DeleteStatusCommand:
		return nil, s.DeleteStatus(ctx, actor, c)
	case nil:
		return nil, s.fail("Execute", domain.Validation("no command given"))
	}
	return nil, s.fail("Execute", domain.Validation("unsupported command %s", fmt.Sprintf("%T", cmd)))
}

// result keeps a failed operation's typed nil out of the interface value.
func result[T any](v T, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
