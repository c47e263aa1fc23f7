package store

import (
	"time"

	"github.com/eleven-am/taskboard/internal/orm"
)

var projectCol = struct {
	ID          orm.Column[string]
	WorkspaceID orm.Column[string]
}{
	ID:          orm.Column[string]{Name: "id"},
	WorkspaceID: orm.Column[string]{Name: "workspace_id"},
}

var memberCol = struct {
	ProjectID   orm.Column[string]
	WorkspaceID orm.Column[string]
	MemberID    orm.Column[string]
}{
	ProjectID:   orm.Column[string]{Name: "project_id"},
	WorkspaceID: orm.Column[string]{Name: "workspace_id"},
	MemberID:    orm.Column[string]{Name: "member_id"},
}

var statusCol = struct {
	ID          orm.Column[string]
	ProjectID   orm.Column[string]
	Name        orm.Column[string]
	Position    orm.ComparableColumn[int]
	IsDefault   orm.Column[bool]
	IsCompleted orm.Column[bool]
}{
	ID:          orm.Column[string]{Name: "id"},
	ProjectID:   orm.Column[string]{Name: "project_id"},
	Name:        orm.Column[string]{Name: "name"},
	Position:    orm.ComparableColumn[int]{Column: orm.Column[int]{Name: "position"}},
	IsDefault:   orm.Column[bool]{Name: "is_default"},
	IsCompleted: orm.Column[bool]{Name: "is_completed"},
}

var taskCol = struct {
	ID           orm.Column[string]
	ProjectID    orm.Column[string]
	StatusID     orm.Column[string]
	ParentTaskID orm.Column[string]
	Position     orm.ComparableColumn[int]
	ArchivedAt   orm.Column[*time.Time]
	Version      orm.Column[int]
}{
	ID:           orm.Column[string]{Name: "id"},
	ProjectID:    orm.Column[string]{Name: "project_id"},
	StatusID:     orm.Column[string]{Name: "status_id"},
	ParentTaskID: orm.Column[string]{Name: "parent_task_id"},
	Position:     orm.ComparableColumn[int]{Column: orm.Column[int]{Name: "position"}},
	ArchivedAt:   orm.Column[*time.Time]{Name: "archived_at"},
	Version:      orm.Column[int]{Name: "version"},
}

var edgeCol = struct {
	TaskID          orm.Column[string]
	DependsOnTaskID orm.Column[string]
	MemberID        orm.Column[string]
	LabelID         orm.Column[string]
	Type            orm.Column[string]
}{
	TaskID:          orm.Column[string]{Name: "task_id"},
	DependsOnTaskID: orm.Column[string]{Name: "depends_on_task_id"},
	MemberID:        orm.Column[string]{Name: "member_id"},
	LabelID:         orm.Column[string]{Name: "label_id"},
	Type:            orm.Column[string]{Name: "type"},
}

var labelCol = struct {
	ID        orm.Column[string]
	ProjectID orm.Column[string]
}{
	ID:        orm.Column[string]{Name: "id"},
	ProjectID: orm.Column[string]{Name: "project_id"},
}
