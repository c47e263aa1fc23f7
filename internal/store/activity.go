package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/orm"
)

type ActivityRepository interface {
	Insert(ctx context.Context, rec *domain.ActivityRecord) error
	ForTask(ctx context.Context, taskID string) ([]domain.ActivityRecord, error)
}

type activityRepo struct{ base }

var activityColumns = []string{
	"id", "project_id", "task_id", "actor_id", "actor_type", "action", "from_state", "to_state", "meta", "created_at",
}

func (r *activityRepo) Insert(ctx context.Context, rec *domain.ActivityRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	q := r.sb.Insert("activity_logs").
		Columns(activityColumns...).
		Values(rec.ID, rec.ProjectID, rec.TaskID, rec.ActorID, rec.ActorType, rec.Action,
			rec.FromState, rec.ToState, rec.Meta, rec.CreatedAt)
	_, err := orm.Exec(ctx, r.db, q, "insert", "activity_logs")
	return err
}

func (r *activityRepo) ForTask(ctx context.Context, taskID string) ([]domain.ActivityRecord, error) {
	var out []domain.ActivityRecord
	q := r.sb.Select(activityColumns...).
		From("activity_logs").
		Where(edgeCol.TaskID.Eq(taskID)).
		OrderBy("created_at", "id")
	err := orm.Select(ctx, r.db, &out, q, "for task", "activity_logs")
	return out, err
}
