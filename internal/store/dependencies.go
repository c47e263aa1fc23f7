package store

import (
	"context"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/orm"
)

type DependencyRepository interface {
	// Add inserts the edge. A duplicate triple fails with orm.ErrDuplicateKey.
	Add(ctx context.Context, d *domain.Dependency) error
	Remove(ctx context.Context, taskID, dependsOnID string, typ domain.DependencyType) (bool, error)
	// DependsOn returns the distinct targets of every edge leaving frontier.
	DependsOn(ctx context.Context, frontier []string) ([]string, error)
	ForTask(ctx context.Context, taskID string) ([]domain.Dependency, error)
	// DeleteIncident removes every edge that starts or ends at taskID.
	DeleteIncident(ctx context.Context, taskID string) error
}

type dependencyRepo struct{ base }

var dependencyColumns = []string{"task_id", "depends_on_task_id", "type", "created_by", "created_at"}

func (r *dependencyRepo) Add(ctx context.Context, d *domain.Dependency) error {
	d.CreatedAt = r.now()
	q := r.sb.Insert("task_dependencies").
		Columns(dependencyColumns...).
		Values(d.TaskID, d.DependsOnTaskID, d.Type, d.CreatedBy, d.CreatedAt)
	_, err := orm.Exec(ctx, r.db, q, "add", "task_dependencies")
	return err
}

func (r *dependencyRepo) Remove(ctx context.Context, taskID, dependsOnID string, typ domain.DependencyType) (bool, error) {
	q := r.sb.Delete("task_dependencies").
		Where(orm.And(
			edgeCol.TaskID.Eq(taskID),
			edgeCol.DependsOnTaskID.Eq(dependsOnID),
			edgeCol.Type.Eq(string(typ)),
		))
	n, err := orm.Exec(ctx, r.db, q, "remove", "task_dependencies")
	return n > 0, err
}

func (r *dependencyRepo) DependsOn(ctx context.Context, frontier []string) ([]string, error) {
	if len(frontier) == 0 {
		return nil, nil
	}
	var out []string
	q := r.sb.Select("DISTINCT depends_on_task_id").
		From("task_dependencies").
		Where(edgeCol.TaskID.In(frontier...))
	err := orm.Select(ctx, r.db, &out, q, "depends on", "task_dependencies")
	return out, err
}

func (r *dependencyRepo) ForTask(ctx context.Context, taskID string) ([]domain.Dependency, error) {
	var out []domain.Dependency
	q := r.sb.Select(dependencyColumns...).
		From("task_dependencies").
		Where(orm.Or(edgeCol.TaskID.Eq(taskID), edgeCol.DependsOnTaskID.Eq(taskID))).
		OrderBy("created_at", "task_id", "depends_on_task_id")
	err := orm.Select(ctx, r.db, &out, q, "for task", "task_dependencies")
	return out, err
}

func (r *dependencyRepo) DeleteIncident(ctx context.Context, taskID string) error {
	q := r.sb.Delete("task_dependencies").
		Where(orm.Or(edgeCol.TaskID.Eq(taskID), edgeCol.DependsOnTaskID.Eq(taskID)))
	_, err := orm.Exec(ctx, r.db, q, "delete incident", "task_dependencies")
	return err
}
