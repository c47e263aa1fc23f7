package store

import (
	"context"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/orm"
)

type AssignmentRepository interface {
	// Add inserts the pair and reports whether it was new.
	Add(ctx context.Context, a *domain.Assignment) (bool, error)
	// Remove deletes the pair and reports whether it existed.
	Remove(ctx context.Context, taskID, memberID string) (bool, error)
	List(ctx context.Context, taskID string) ([]domain.Assignment, error)
	Count(ctx context.Context, taskID string) (int, error)
	IsAssigned(ctx context.Context, taskID, memberID string) (bool, error)
	DeleteForTask(ctx context.Context, taskID string) error
}

type assignmentRepo struct{ base }

func (r *assignmentRepo) Add(ctx context.Context, a *domain.Assignment) (bool, error) {
	a.CreatedAt = r.now()
	q := r.insertIgnore("task_assignees").
		Columns("task_id", "member_id", "assigned_by", "created_at").
		Values(a.TaskID, a.MemberID, a.AssignedBy, a.CreatedAt)
	n, err := orm.Exec(ctx, r.db, q, "assign", "task_assignees")
	return n > 0, err
}

func (r *assignmentRepo) Remove(ctx context.Context, taskID, memberID string) (bool, error) {
	q := r.sb.Delete("task_assignees").
		Where(orm.And(edgeCol.TaskID.Eq(taskID), edgeCol.MemberID.Eq(memberID)))
	n, err := orm.Exec(ctx, r.db, q, "unassign", "task_assignees")
	return n > 0, err
}

func (r *assignmentRepo) List(ctx context.Context, taskID string) ([]domain.Assignment, error) {
	var out []domain.Assignment
	q := r.sb.Select("task_id", "member_id", "assigned_by", "created_at").
		From("task_assignees").
		Where(edgeCol.TaskID.Eq(taskID)).
		OrderBy("created_at", "member_id")
	err := orm.Select(ctx, r.db, &out, q, "list", "task_assignees")
	return out, err
}

func (r *assignmentRepo) Count(ctx context.Context, taskID string) (int, error) {
	var n int
	q := r.sb.Select("COUNT(*)").From("task_assignees").Where(edgeCol.TaskID.Eq(taskID))
	err := orm.Get(ctx, r.db, &n, q, "count", "task_assignees")
	return n, err
}

func (r *assignmentRepo) IsAssigned(ctx context.Context, taskID, memberID string) (bool, error) {
	var n int
	q := r.sb.Select("COUNT(*)").
		From("task_assignees").
		Where(orm.And(edgeCol.TaskID.Eq(taskID), edgeCol.MemberID.Eq(memberID)))
	err := orm.Get(ctx, r.db, &n, q, "is assigned", "task_assignees")
	return n > 0, err
}

func (r *assignmentRepo) DeleteForTask(ctx context.Context, taskID string) error {
	_, err := orm.Exec(ctx, r.db, r.sb.Delete("task_assignees").Where(edgeCol.TaskID.Eq(taskID)), "delete", "task_assignees")
	return err
}
