package domain

import (
	"strings"
	"time"
)

// Command is a validated, typed request for the board engine.
type Command interface {
	CommandName() string
	Validate() error
}

type CreateTaskCommand struct {
	ProjectID    string
	Title        string
	Description  *string
	Priority     Priority
	DueDate      *time.Time
	ParentTaskID *string
	AssigneeIDs  []string
	LabelIDs     []string
}

func (CreateTaskCommand) CommandName() string { return "create_task" }

func (c CreateTaskCommand) Validate() error {
	if c.ProjectID == "" {
		return Validation("project id is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return Validation("task title is required")
	}
	if c.Priority != "" && !c.Priority.Valid() {
		return Validation("unknown priority %q", c.Priority)
	}
	if c.ParentTaskID != nil && *c.ParentTaskID == "" {
		return Validation("parent task id must not be empty")
	}
	return nil
}

type UpdateTaskCommand struct {
	TaskID          string
	Title           *string
	Description     *string
	Priority        *Priority
	DueDate         *time.Time
	ClearDueDate    bool
	ExpectedVersion *int
}

func (UpdateTaskCommand) CommandName() string { return "update_task" }

func (c UpdateTaskCommand) Validate() error {
	if c.TaskID == "" {
		return Validation("task id is required")
	}
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		return Validation("task title must not be empty")
	}
	if c.Priority != nil && !c.Priority.Valid() {
		return Validation("unknown priority %q", *c.Priority)
	}
	if c.DueDate != nil && c.ClearDueDate {
		return Validation("due date cannot be set and cleared at once")
	}
	return nil
}

// MoveTaskCommand moves a task to StatusID. A nil Position appends at the tail.
type MoveTaskCommand struct {
	TaskID          string
	StatusID        string
	Position        *int
	ExpectedVersion *int
}

func (MoveTaskCommand) CommandName() string { return "move_task" }

func (c MoveTaskCommand) Validate() error {
	if c.TaskID == "" {
		return Validation("task id is required")
	}
	if c.StatusID == "" {
		return Validation("status id is required")
	}
	if c.Position != nil && *c.Position < 0 {
		return Validation("position must not be negative")
	}
	return nil
}

type AssignTaskCommand struct {
	TaskID    string
	MemberIDs []string
}

func (AssignTaskCommand) CommandName() string { return "assign_task" }

func (c AssignTaskCommand) Validate() error {
	if c.TaskID == "" {
		return Validation("task id is required")
	}
	if len(c.MemberIDs) == 0 {
		return Validation("at least one member id is required")
	}
	return requireNonEmpty("member id", c.MemberIDs)
}

type UnassignTaskCommand struct {
	TaskID   string
	MemberID string
}

func (UnassignTaskCommand) CommandName() string { return "unassign_task" }

func (c UnassignTaskCommand) Validate() error {
	if c.TaskID == "" || c.MemberID == "" {
		return Validation("task id and member id are required")
	}
	return nil
}

type AddDependencyCommand struct {
	TaskID          string
	DependsOnTaskID string
	Type            DependencyType
}

func (AddDependencyCommand) CommandName() string { return "add_dependency" }

func (c AddDependencyCommand) Validate() error {
	return validateEdge(c.TaskID, c.DependsOnTaskID, c.Type)
}

type RemoveDependencyCommand struct {
	TaskID          string
	DependsOnTaskID string
	Type            DependencyType
}

func (RemoveDependencyCommand) CommandName() string { return "remove_dependency" }

func (c RemoveDependencyCommand) Validate() error {
	return validateEdge(c.TaskID, c.DependsOnTaskID, c.Type)
}

func validateEdge(taskID, dependsOn string, typ DependencyType) error {
	if taskID == "" || dependsOn == "" {
		return Validation("task id and depends-on task id are required")
	}
	if !typ.Valid() {
		return Validation("unknown dependency type %q", typ)
	}
	return nil
}

type TagTaskCommand struct {
	TaskID   string
	LabelIDs []string
}

func (TagTaskCommand) CommandName() string { return "tag_task" }

func (c TagTaskCommand) Validate() error {
	if c.TaskID == "" {
		return Validation("task id is required")
	}
	if len(c.LabelIDs) == 0 {
		return Validation("at least one label id is required")
	}
	return requireNonEmpty("label id", c.LabelIDs)
}

type UntagTaskCommand struct {
	TaskID  string
	LabelID string
}

func (UntagTaskCommand) CommandName() string { return "untag_task" }

func (c UntagTaskCommand) Validate() error {
	if c.TaskID == "" || c.LabelID == "" {
		return Validation("task id and label id are required")
	}
	return nil
}

type ArchiveTaskCommand struct{ TaskID string }

func (ArchiveTaskCommand) CommandName() string { return "archive_task" }
func (c ArchiveTaskCommand) Validate() error   { return requireTask(c.TaskID) }

type RestoreTaskCommand struct{ TaskID string }

func (RestoreTaskCommand) CommandName() string { return "restore_task" }
func (c RestoreTaskCommand) Validate() error   { return requireTask(c.TaskID) }

type DeleteTaskCommand struct{ TaskID string }

func (DeleteTaskCommand) CommandName() string { return "delete_task" }
func (c DeleteTaskCommand) Validate() error   { return requireTask(c.TaskID) }

type CreateStatusCommand struct {
	ProjectID   string
	Name        string
	Color       string
	IsDefault   bool
	IsCompleted bool
}

func (CreateStatusCommand) CommandName() string { return "create_status" }

func (c CreateStatusCommand) Validate() error {
	if c.ProjectID == "" {
		return Validation("project id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return Validation("status name is required")
	}
	if c.IsDefault && c.IsCompleted {
		return Validation("a lane cannot be both default and completed")
	}
	return nil
}

type UpdateStatusCommand struct {
	StatusID    string
	Name        *string
	Color       *string
	IsDefault   *bool
	IsCompleted *bool
}

func (UpdateStatusCommand) CommandName() string { return "update_status" }

func (c UpdateStatusCommand) Validate() error {
	if c.StatusID == "" {
		return Validation("status id is required")
	}
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return Validation("status name must not be empty")
	}
	if c.IsDefault != nil && c.IsCompleted != nil && *c.IsDefault && *c.IsCompleted {
		return Validation("a lane cannot be both default and completed")
	}
	return nil
}

type ReorderStatusesCommand struct {
	ProjectID string
	StatusIDs []string
}

func (ReorderStatusesCommand) CommandName() string { return "reorder_statuses" }

func (c ReorderStatusesCommand) Validate() error {
	if c.ProjectID == "" {
		return Validation("project id is required")
	}
	if len(c.StatusIDs) == 0 {
		return Validation("status ids are required")
	}
	seen := make(map[string]struct{}, len(c.StatusIDs))
	for _, id := range c.StatusIDs {
		if _, dup := seen[id]; dup {
			return Validation("status %s listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return requireNonEmpty("status id", c.StatusIDs)
}

type DeleteStatusCommand struct{ StatusID string }

func (DeleteStatusCommand) CommandName() string { return "delete_status" }

func (c DeleteStatusCommand) Validate() error {
	if c.StatusID == "" {
		return Validation("status id is required")
	}
	return nil
}

func requireTask(id string) error {
	if id == "" {
		return Validation("task id is required")
	}
	return nil
}

func requireNonEmpty(what string, ids []string) error {
	for _, id := range ids {
		if id == "" {
			return Validation("%s must not be empty", what)
		}
	}
	return nil
}
