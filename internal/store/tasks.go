package store

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/orm"
)

// Lane identifies one (project, status) partition.
type Lane struct {
	ProjectID string
	StatusID  string
}

// ParkedPosition holds a task outside the dense range while its lane is
// renumbered.
const ParkedPosition = -1

// ErrStaleVersion reports an update against an outdated task version.
var ErrStaleVersion = errors.New("stale task version")

type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	// Active lists the non-archived tasks of a lane ordered by position.
	Active(ctx context.Context, lane Lane) ([]domain.Task, error)
	// InLane lists every task of a lane, archived ones included.
	InLane(ctx context.Context, lane Lane) ([]domain.Task, error)
	ActiveInProject(ctx context.Context, projectID string) ([]domain.Task, error)
	Subtasks(ctx context.Context, parentID string) ([]domain.Task, error)
	// InProject returns which of ids are tasks of the project.
	InProject(ctx context.Context, projectID string, ids []string) ([]string, error)
	Count(ctx context.Context, lane Lane) (int, error)
	NextPosition(ctx context.Context, lane Lane) (int, error)
	Positions(ctx context.Context, lane Lane) ([]int, error)
	Park(ctx context.Context, id string) error
	// ShiftPositions adds delta to the position of every active task in the
	// lane whose position is >= from, and <= to when to is not nil.
	ShiftPositions(ctx context.Context, lane Lane, from int, to *int, delta int) error
	// Place writes the task's lane, position and completion stamp and bumps
	// its version.
	Place(ctx context.Context, id, statusID string, position int, completedAt *time.Time) error
	Update(ctx context.Context, t *domain.Task) error
	Archive(ctx context.Context, id string, at time.Time) error
	Restore(ctx context.Context, id string, position int) error
	// Relocate moves an archived task to another lane without touching
	// active positions.
	Relocate(ctx context.Context, id, statusID string, completedAt *time.Time) error
	SetCompletedForStatus(ctx context.Context, statusID string, completedAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

type taskRepo struct{ base }

var taskColumns = []string{
	"id", "project_id", "status_id", "title", "description", "priority", "due_date", "position",
	"created_by", "parent_task_id", "completed_at", "archived_at", "version", "created_at", "updated_at",
}

func (r *taskRepo) selectTasks() squirrel.SelectBuilder {
	return r.sb.Select(taskColumns...).From("tasks")
}

func laneCond(lane Lane) orm.Condition {
	return orm.And(taskCol.ProjectID.Eq(lane.ProjectID), taskCol.StatusID.Eq(lane.StatusID))
}

func activeLane(lane Lane) orm.Condition {
	return orm.And(taskCol.ProjectID.Eq(lane.ProjectID), taskCol.StatusID.Eq(lane.StatusID), taskCol.ArchivedAt.IsNull())
}

func notFound(op string) error {
	return &orm.Error{Op: op, Table: "tasks", Err: orm.ErrNotFound}
}

func (r *taskRepo) Create(ctx context.Context, t *domain.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := r.now()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Version == 0 {
		t.Version = 1
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	q := r.sb.Insert("tasks").
		Columns(taskColumns...).
		Values(t.ID, t.ProjectID, t.StatusID, t.Title, t.Description, t.Priority, t.DueDate, t.Position,
			t.CreatedBy, t.ParentTaskID, t.CompletedAt, t.ArchivedAt, t.Version, t.CreatedAt, t.UpdatedAt)
	_, err := orm.Exec(ctx, r.db, q, "create", "tasks")
	return err
}

func (r *taskRepo) Get(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	if err := orm.Get(ctx, r.db, &t, r.selectTasks().Where(taskCol.ID.Eq(id)), "get", "tasks"); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepo) Active(ctx context.Context, lane Lane) ([]domain.Task, error) {
	var out []domain.Task
	q := r.selectTasks().Where(activeLane(lane)).OrderBy(taskCol.Position.Asc())
	err := orm.Select(ctx, r.db, &out, q, "active", "tasks")
	return out, err
}

func (r *taskRepo) InLane(ctx context.Context, lane Lane) ([]domain.Task, error) {
	var out []domain.Task
	q := r.selectTasks().Where(laneCond(lane)).OrderBy(taskCol.Position.Asc(), "created_at")
	err := orm.Select(ctx, r.db, &out, q, "in lane", "tasks")
	return out, err
}

func (r *taskRepo) ActiveInProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	var out []domain.Task
	q := r.selectTasks().
		Where(orm.And(taskCol.ProjectID.Eq(projectID), taskCol.ArchivedAt.IsNull())).
		OrderBy("status_id", taskCol.Position.Asc())
	err := orm.Select(ctx, r.db, &out, q, "active in project", "tasks")
	return out, err
}

func (r *taskRepo) Subtasks(ctx context.Context, parentID string) ([]domain.Task, error) {
	var out []domain.Task
	q := r.selectTasks().Where(taskCol.ParentTaskID.Eq(parentID)).OrderBy("created_at", "id")
	err := orm.Select(ctx, r.db, &out, q, "subtasks", "tasks")
	return out, err
}

func (r *taskRepo) InProject(ctx context.Context, projectID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []string
	q := r.sb.Select("id").From("tasks").Where(orm.And(taskCol.ProjectID.Eq(projectID), taskCol.ID.In(ids...)))
	err := orm.Select(ctx, r.db, &found, q, "in project", "tasks")
	return found, err
}

func (r *taskRepo) Count(ctx context.Context, lane Lane) (int, error) {
	var n int
	q := r.sb.Select("COUNT(*)").From("tasks").Where(activeLane(lane))
	err := orm.Get(ctx, r.db, &n, q, "count", "tasks")
	return n, err
}

func (r *taskRepo) NextPosition(ctx context.Context, lane Lane) (int, error) {
	var next int
	q := r.sb.Select("COALESCE(MAX(position), -1) + 1").
		From("tasks").
		Where(activeLane(lane)).
		Where(taskCol.Position.Gte(0))
	err := orm.Get(ctx, r.db, &next, q, "next position", "tasks")
	return next, err
}

func (r *taskRepo) Positions(ctx context.Context, lane Lane) ([]int, error) {
	var out []int
	q := r.sb.Select("position").From("tasks").Where(activeLane(lane)).OrderBy(taskCol.Position.Asc())
	err := orm.Select(ctx, r.db, &out, q, "positions", "tasks")
	return out, err
}

func (r *taskRepo) Park(ctx context.Context, id string) error {
	q := r.sb.Update("tasks").Set("position", ParkedPosition).Where(taskCol.ID.Eq(id))
	n, err := orm.Exec(ctx, r.db, q, "park", "tasks")
	if err == nil && n == 0 {
		return notFound("park")
	}
	return err
}

// ShiftPositions renumbers in two statements so no intermediate row state
// collides with the unique active-position index: the range is first mapped
// to distinct values <= -2, then mapped back to its shifted non-negative
// positions. A parked task at -1 is never touched.
func (r *taskRepo) ShiftPositions(ctx context.Context, lane Lane, from int, to *int, delta int) error {
	if delta == 0 {
		return nil
	}
	rng := taskCol.Position.Gte(from)
	if to != nil {
		if *to < from {
			return nil
		}
		rng = taskCol.Position.Between(from, *to)
	}

	out := r.sb.Update("tasks").
		Set("position", squirrel.Expr("-(position + ?) - 2", delta)).
		Where(activeLane(lane)).
		Where(rng)
	if _, err := orm.Exec(ctx, r.db, out, "shift", "tasks"); err != nil {
		return err
	}

	back := r.sb.Update("tasks").
		Set("position", squirrel.Expr("-position - 2")).
		Where(activeLane(lane)).
		Where(taskCol.Position.Lte(-2))
	_, err := orm.Exec(ctx, r.db, back, "shift", "tasks")
	return err
}

func (r *taskRepo) Place(ctx context.Context, id, statusID string, position int, completedAt *time.Time) error {
	q := r.sb.Update("tasks").
		Set("status_id", statusID).
		Set("position", position).
		Set("completed_at", completedAt).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", r.now()).
		Where(taskCol.ID.Eq(id))
	n, err := orm.Exec(ctx, r.db, q, "place", "tasks")
	if err == nil && n == 0 {
		return notFound("place")
	}
	return err
}

// Update writes the editable fields and bumps the version. The write only
// applies when the stored version still equals t.Version.
func (r *taskRepo) Update(ctx context.Context, t *domain.Task) error {
	t.UpdatedAt = r.now()
	q := r.sb.Update("tasks").
		Set("title", t.Title).
		Set("description", t.Description).
		Set("priority", t.Priority).
		Set("due_date", t.DueDate).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", t.UpdatedAt).
		Where(orm.And(taskCol.ID.Eq(t.ID), taskCol.Version.Eq(t.Version)))
	n, err := orm.Exec(ctx, r.db, q, "update", "tasks")
	if err != nil {
		return err
	}
	if n == 0 {
		return &orm.Error{Op: "update", Table: "tasks", Err: ErrStaleVersion}
	}
	t.Version++
	return nil
}

func (r *taskRepo) Archive(ctx context.Context, id string, at time.Time) error {
	q := r.sb.Update("tasks").
		Set("archived_at", at).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", r.now()).
		Where(orm.And(taskCol.ID.Eq(id), taskCol.ArchivedAt.IsNull()))
	n, err := orm.Exec(ctx, r.db, q, "archive", "tasks")
	if err == nil && n == 0 {
		return notFound("archive")
	}
	return err
}

func (r *taskRepo) Restore(ctx context.Context, id string, position int) error {
	q := r.sb.Update("tasks").
		Set("archived_at", nil).
		Set("position", position).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", r.now()).
		Where(orm.And(taskCol.ID.Eq(id), taskCol.ArchivedAt.IsNotNull()))
	n, err := orm.Exec(ctx, r.db, q, "restore", "tasks")
	if err == nil && n == 0 {
		return notFound("restore")
	}
	return err
}

func (r *taskRepo) Relocate(ctx context.Context, id, statusID string, completedAt *time.Time) error {
	q := r.sb.Update("tasks").
		Set("status_id", statusID).
		Set("completed_at", completedAt).
		Set("updated_at", r.now()).
		Where(orm.And(taskCol.ID.Eq(id), taskCol.ArchivedAt.IsNotNull()))
	n, err := orm.Exec(ctx, r.db, q, "relocate", "tasks")
	if err == nil && n == 0 {
		return notFound("relocate")
	}
	return err
}

func (r *taskRepo) SetCompletedForStatus(ctx context.Context, statusID string, completedAt *time.Time) error {
	q := r.sb.Update("tasks").
		Set("completed_at", completedAt).
		Set("updated_at", r.now()).
		Where(taskCol.StatusID.Eq(statusID))
	if completedAt != nil {
		// Tasks that were already complete keep their original stamp.
		q = q.Where(squirrel.Eq{"completed_at": nil})
	}
	_, err := orm.Exec(ctx, r.db, q, "sync completion", "tasks")
	return err
}

func (r *taskRepo) Delete(ctx context.Context, id string) error {
	n, err := orm.Exec(ctx, r.db, r.sb.Delete("tasks").Where(taskCol.ID.Eq(id)), "delete", "tasks")
	if err == nil && n == 0 {
		return notFound("delete")
	}
	return err
}
