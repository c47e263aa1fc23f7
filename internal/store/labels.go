package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/orm"
)

type LabelRepository interface {
	Create(ctx context.Context, l *domain.Label) error
	List(ctx context.Context, projectID string) ([]domain.Label, error)
	// InProject returns which of ids are labels of the project.
	InProject(ctx context.Context, projectID string, ids []string) ([]string, error)
	// Tag reports whether the tag was new.
	Tag(ctx context.Context, t *domain.Tag) (bool, error)
	Untag(ctx context.Context, taskID, labelID string) (bool, error)
	Tags(ctx context.Context, taskID string) ([]domain.Tag, error)
	DeleteTags(ctx context.Context, taskID string) error
}

type labelRepo struct{ base }

func (r *labelRepo) Create(ctx context.Context, l *domain.Label) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = r.now()
	q := r.sb.Insert("labels").
		Columns("id", "project_id", "name", "color", "created_at").
		Values(l.ID, l.ProjectID, l.Name, l.Color, l.CreatedAt)
	_, err := orm.Exec(ctx, r.db, q, "create", "labels")
	return err
}

func (r *labelRepo) List(ctx context.Context, projectID string) ([]domain.Label, error) {
	var out []domain.Label
	q := r.sb.Select("id", "project_id", "name", "color", "created_at").
		From("labels").
		Where(labelCol.ProjectID.Eq(projectID)).
		OrderBy("name")
	err := orm.Select(ctx, r.db, &out, q, "list", "labels")
	return out, err
}

func (r *labelRepo) InProject(ctx context.Context, projectID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []string
	q := r.sb.Select("id").From("labels").Where(orm.And(labelCol.ProjectID.Eq(projectID), labelCol.ID.In(ids...)))
	err := orm.Select(ctx, r.db, &found, q, "in project", "labels")
	return found, err
}

func (r *labelRepo) Tag(ctx context.Context, t *domain.Tag) (bool, error) {
	t.CreatedAt = r.now()
	q := r.insertIgnore("task_tags").
		Columns("task_id", "label_id", "created_at").
		Values(t.TaskID, t.LabelID, t.CreatedAt)
	n, err := orm.Exec(ctx, r.db, q, "tag", "task_tags")
	return n > 0, err
}

func (r *labelRepo) Untag(ctx context.Context, taskID, labelID string) (bool, error) {
	q := r.sb.Delete("task_tags").Where(orm.And(edgeCol.TaskID.Eq(taskID), edgeCol.LabelID.Eq(labelID)))
	n, err := orm.Exec(ctx, r.db, q, "untag", "task_tags")
	return n > 0, err
}

func (r *labelRepo) Tags(ctx context.Context, taskID string) ([]domain.Tag, error) {
	var out []domain.Tag
	q := r.sb.Select("task_id", "label_id", "created_at").
		From("task_tags").
		Where(edgeCol.TaskID.Eq(taskID)).
		OrderBy("created_at", "label_id")
	err := orm.Select(ctx, r.db, &out, q, "tags", "task_tags")
	return out, err
}

func (r *labelRepo) DeleteTags(ctx context.Context, taskID string) error {
	_, err := orm.Exec(ctx, r.db, r.sb.Delete("task_tags").Where(edgeCol.TaskID.Eq(taskID)), "delete", "task_tags")
	return err
}
