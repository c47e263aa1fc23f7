// Package domain holds the entities, commands and error taxonomy shared by
// the store and the board engine.
package domain

import (
	"time"

	"github.com/eleven-am/taskboard/internal/orm"
)

// WorkspaceRole is the caller's role within the owning workspace.
type WorkspaceRole string

const (
	WorkspaceOwner  WorkspaceRole = "owner"
	WorkspaceAdmin  WorkspaceRole = "admin"
	WorkspaceMember WorkspaceRole = "member"
)

// ProjectRole is the caller's role within a project.
type ProjectRole string

const (
	ProjectLead   ProjectRole = "lead"
	ProjectMember ProjectRole = "member"
	ProjectViewer ProjectRole = "viewer"
)

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// DependencyType describes how two tasks relate.
type DependencyType string

const (
	DependencyBlocks    DependencyType = "blocks"
	DependencyBlockedBy DependencyType = "blocked_by"
)

func (t DependencyType) Valid() bool {
	return t == DependencyBlocks || t == DependencyBlockedBy
}

// LaneKind partitions a project's lanes for the state machine.
type LaneKind string

const (
	LaneDefault      LaneKind = "default"
	LaneIntermediate LaneKind = "intermediate"
	LaneCompleted    LaneKind = "completed"
)

type Workspace struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type WorkspaceMembership struct {
	WorkspaceID string        `db:"workspace_id" json:"workspace_id"`
	MemberID    string        `db:"member_id" json:"member_id"`
	Role        WorkspaceRole `db:"role" json:"role"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

type Project struct {
	ID          string    `db:"id" json:"id"`
	WorkspaceID string    `db:"workspace_id" json:"workspace_id"`
	Name        string    `db:"name" json:"name"`
	LeadID      *string   `db:"lead_id" json:"lead_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ProjectMembership struct {
	ProjectID string      `db:"project_id" json:"project_id"`
	MemberID  string      `db:"member_id" json:"member_id"`
	Role      ProjectRole `db:"role" json:"role"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Status is a board lane.
type Status struct {
	ID          string    `db:"id" json:"id"`
	ProjectID   string    `db:"project_id" json:"project_id"`
	Name        string    `db:"name" json:"name"`
	Color       string    `db:"color" json:"color"`
	Position    int       `db:"position" json:"position"`
	IsDefault   bool      `db:"is_default" json:"is_default"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Kind classifies the lane. A lane is never both default and completed.
func (s Status) Kind() LaneKind {
	switch {
	case s.IsDefault:
		return LaneDefault
	case s.IsCompleted:
		return LaneCompleted
	default:
		return LaneIntermediate
	}
}

type Task struct {
	ID           string     `db:"id" json:"id"`
	ProjectID    string     `db:"project_id" json:"project_id"`
	StatusID     string     `db:"status_id" json:"status_id"`
	Title        string     `db:"title" json:"title"`
	Description  *string    `db:"description" json:"description"`
	Priority     Priority   `db:"priority" json:"priority"`
	DueDate      *time.Time `db:"due_date" json:"due_date"`
	Position     int        `db:"position" json:"position"`
	CreatedBy    string     `db:"created_by" json:"created_by"`
	ParentTaskID *string    `db:"parent_task_id" json:"parent_task_id"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at"`
	ArchivedAt   *time.Time `db:"archived_at" json:"archived_at"`
	Version      int        `db:"version" json:"version"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (t Task) IsArchived() bool { return t.ArchivedAt != nil }

type Assignment struct {
	TaskID     string    `db:"task_id" json:"task_id"`
	MemberID   string    `db:"member_id" json:"member_id"`
	AssignedBy string    `db:"assigned_by" json:"assigned_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Dependency records that TaskID depends on DependsOnTaskID.
type Dependency struct {
	TaskID          string         `db:"task_id" json:"task_id"`
	DependsOnTaskID string         `db:"depends_on_task_id" json:"depends_on_task_id"`
	Type            DependencyType `db:"type" json:"type"`
	CreatedBy       string         `db:"created_by" json:"created_by"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

type Label struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Tag struct {
	TaskID    string    `db:"task_id" json:"task_id"`
	LabelID   string    `db:"label_id" json:"label_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ActivityRecord is one audit entry for a task transition.
type ActivityRecord struct {
	ID        string      `db:"id" json:"id"`
	ProjectID string      `db:"project_id" json:"project_id"`
	TaskID    string      `db:"task_id" json:"task_id"`
	ActorID   string      `db:"actor_id" json:"actor_id"`
	ActorType string      `db:"actor_type" json:"actor_type"`
	Action    string      `db:"action" json:"action"`
	FromState *string     `db:"from_state" json:"from_state"`
	ToState   *string     `db:"to_state" json:"to_state"`
	Meta      orm.JSONMap `db:"meta" json:"meta"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
