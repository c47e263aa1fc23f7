package store

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/orm"
)

type StatusRepository interface {
	Create(ctx context.Context, s *domain.Status) error
	Get(ctx context.Context, id string) (*domain.Status, error)
	List(ctx context.Context, projectID string) ([]domain.Status, error)
	Default(ctx context.Context, projectID string) (*domain.Status, error)
	// FirstIntermediate returns the lowest-position lane that is neither
	// default nor completed, or ErrNotFound.
	FirstIntermediate(ctx context.Context, projectID string) (*domain.Status, error)
	NextPosition(ctx context.Context, projectID string) (int, error)
	Update(ctx context.Context, s *domain.Status) error
	ClearDefault(ctx context.Context, projectID string) error
	SetPosition(ctx context.Context, id string, position int) error
	Delete(ctx context.Context, id string) error
}

type statusRepo struct{ base }

var statusColumns = []string{"id", "project_id", "name", "color", "position", "is_default", "is_completed", "created_at"}

func (r *statusRepo) selectStatuses() squirrel.SelectBuilder {
	return r.sb.Select(statusColumns...).From("statuses")
}

func (r *statusRepo) Create(ctx context.Context, s *domain.Status) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = r.now()
	q := r.sb.Insert("statuses").
		Columns(statusColumns...).
		Values(s.ID, s.ProjectID, s.Name, s.Color, s.Position, s.IsDefault, s.IsCompleted, s.CreatedAt)
	_, err := orm.Exec(ctx, r.db, q, "create", "statuses")
	return err
}

func (r *statusRepo) Get(ctx context.Context, id string) (*domain.Status, error) {
	var s domain.Status
	if err := orm.Get(ctx, r.db, &s, r.selectStatuses().Where(statusCol.ID.Eq(id)), "get", "statuses"); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statusRepo) List(ctx context.Context, projectID string) ([]domain.Status, error) {
	var out []domain.Status
	q := r.selectStatuses().
		Where(statusCol.ProjectID.Eq(projectID)).
		OrderBy(statusCol.Position.Asc(), "created_at")
	err := orm.Select(ctx, r.db, &out, q, "list", "statuses")
	return out, err
}

func (r *statusRepo) Default(ctx context.Context, projectID string) (*domain.Status, error) {
	var s domain.Status
	q := r.selectStatuses().Where(orm.And(statusCol.ProjectID.Eq(projectID), statusCol.IsDefault.Eq(true)))
	if err := orm.Get(ctx, r.db, &s, q, "default", "statuses"); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statusRepo) FirstIntermediate(ctx context.Context, projectID string) (*domain.Status, error) {
	var s domain.Status
	q := r.selectStatuses().
		Where(orm.And(
			statusCol.ProjectID.Eq(projectID),
			statusCol.IsDefault.Eq(false),
			statusCol.IsCompleted.Eq(false),
		)).
		OrderBy(statusCol.Position.Asc(), "created_at").
		Limit(1)
	if err := orm.Get(ctx, r.db, &s, q, "first intermediate", "statuses"); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statusRepo) NextPosition(ctx context.Context, projectID string) (int, error) {
	var next int
	q := r.sb.Select("COALESCE(MAX(position), -1) + 1").
		From("statuses").
		Where(statusCol.ProjectID.Eq(projectID))
	err := orm.Get(ctx, r.db, &next, q, "next position", "statuses")
	return next, err
}

func (r *statusRepo) Update(ctx context.Context, s *domain.Status) error {
	q := r.sb.Update("statuses").
		Set("name", s.Name).
		Set("color", s.Color).
		Set("is_default", s.IsDefault).
		Set("is_completed", s.IsCompleted).
		Where(statusCol.ID.Eq(s.ID))
	n, err := orm.Exec(ctx, r.db, q, "update", "statuses")
	if err == nil && n == 0 {
		return &orm.Error{Op: "update", Table: "statuses", Err: orm.ErrNotFound}
	}
	return err
}

func (r *statusRepo) ClearDefault(ctx context.Context, projectID string) error {
	q := r.sb.Update("statuses").
		Set("is_default", false).
		Where(orm.And(statusCol.ProjectID.Eq(projectID), statusCol.IsDefault.Eq(true)))
	_, err := orm.Exec(ctx, r.db, q, "clear default", "statuses")
	return err
}

func (r *statusRepo) SetPosition(ctx context.Context, id string, position int) error {
	q := r.sb.Update("statuses").Set("position", position).Where(statusCol.ID.Eq(id))
	_, err := orm.Exec(ctx, r.db, q, "set position", "statuses")
	return err
}

func (r *statusRepo) Delete(ctx context.Context, id string) error {
	n, err := orm.Exec(ctx, r.db, r.sb.Delete("statuses").Where(statusCol.ID.Eq(id)), "delete", "statuses")
	if err == nil && n == 0 {
		return &orm.Error{Op: "delete", Table: "statuses", Err: orm.ErrNotFound}
	}
	return err
}
