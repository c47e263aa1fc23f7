package board

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/events"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/store"
	dbtest "github.com/eleven-am/taskboard/internal/testing"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]events.Event
}

func (r *recorder) Publish(batch []events.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
	return true
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.batches = nil
	r.mu.Unlock()
}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

var (
	owner = domain.Actor{ID: "owner", WorkspaceRole: domain.WorkspaceOwner}
	lead  = domain.Actor{ID: "lead", ProjectRole: domain.ProjectLead}
	alice = domain.Actor{ID: "alice", ProjectRole: domain.ProjectMember}
	bob   = domain.Actor{ID: "bob", ProjectRole: domain.ProjectMember}
)

type fixture struct {
	ctx     context.Context
	store   *store.Store
	svc     *Service
	events  *recorder
	project *domain.Project
	todo    domain.Status
	doing   domain.Status
	done    domain.Status
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.SQLite(t), orm.SQLite)
}

func newFixtureOn(t *testing.T, db *sqlx.DB, dialect orm.Dialect) *fixture {
	t.Helper()
	ctx := context.Background()

	st := store.New(db, dialect)
	rec := &recorder{}
	svc := New(st, rec, DefaultConfig())

	ws, err := svc.CreateWorkspace(ctx, owner, "Acme")
	require.NoError(t, err)
	leadID := lead.ID
	p, lanes, err := svc.CreateProject(ctx, owner, ProjectSpec{
		WorkspaceID: ws.ID,
		Name:        "Launch",
		LeadID:      &leadID,
		Lanes: []LaneSpec{
			{Name: "Todo"},
			{Name: "Doing"},
			{Name: "Done", IsCompleted: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, lanes, 3)
	require.True(t, lanes[0].IsDefault)

	for _, id := range []string{alice.ID, bob.ID} {
		require.NoError(t, svc.AddProjectMember(ctx, owner, p.ID, id, domain.ProjectMember))
	}
	rec.reset()

	return &fixture{
		ctx: ctx, store: st, svc: svc, events: rec, project: p,
		todo: lanes[0], doing: lanes[1], done: lanes[2],
	}
}

func (f *fixture) task(t *testing.T, title string) *domain.Task {
	t.Helper()
	task, err := f.svc.CreateTask(f.ctx, lead, domain.CreateTaskCommand{ProjectID: f.project.ID, Title: title})
	require.NoError(t, err)
	return task
}

func (f *fixture) get(t *testing.T, id string) *domain.Task {
	t.Helper()
	task, err := f.svc.Task(f.ctx, id)
	require.NoError(t, err)
	return task
}

// titles returns the titles of the active tasks of a lane in board order.
func (f *fixture) titles(t *testing.T, lane domain.Status) []string {
	t.Helper()
	b, err := f.svc.Board(f.ctx, f.project.ID)
	require.NoError(t, err)
	for _, l := range b.Lanes {
		if l.Status.ID == lane.ID {
			out := make([]string, len(l.Tasks))
			for i, task := range l.Tasks {
				out[i] = task.Title
			}
			return out
		}
	}
	t.Fatalf("lane %s not on board", lane.Name)
	return nil
}

func (f *fixture) assertDense(t *testing.T) {
	t.Helper()
	violations, err := f.svc.VerifyProject(f.ctx, f.project.ID)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func intp(i int) *int { return &i }

func TestAssignmentAutoProgression(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "A")
	b := f.task(t, "B")
	assert.Equal(t, 0, a.Position)
	assert.Equal(t, 1, b.Position)

	res, err := f.svc.Assign(f.ctx, lead, domain.AssignTaskCommand{TaskID: a.ID, MemberIDs: []string{alice.ID}})
	require.NoError(t, err)
	assert.True(t, res.AutoProgressed)
	assert.Equal(t, []string{alice.ID}, res.Added)

	a = f.get(t, a.ID)
	assert.Equal(t, f.doing.ID, a.StatusID)
	assert.Equal(t, 0, a.Position)
	b = f.get(t, b.ID)
	assert.Equal(t, f.todo.ID, b.StatusID)
	assert.Equal(t, 0, b.Position)

	_, err = f.svc.MoveTask(f.ctx, bob, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.done.ID})
	assert.True(t, errors.Is(err, domain.ErrPermission))
	assert.Equal(t, f.doing.ID, f.get(t, a.ID).StatusID)

	moved, err := f.svc.MoveTask(f.ctx, alice, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.done.ID})
	require.NoError(t, err)
	assert.Equal(t, f.done.ID, moved.StatusID)
	assert.NotNil(t, moved.CompletedAt)
	f.assertDense(t)
}

func TestAutoProgressionHappensOnce(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "A")

	res, err := f.svc.Assign(f.ctx, lead, domain.AssignTaskCommand{TaskID: a.ID, MemberIDs: []string{alice.ID, alice.ID}})
	require.NoError(t, err)
	assert.True(t, res.AutoProgressed)

	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.todo.ID})
	require.NoError(t, err)

	res, err = f.svc.Assign(f.ctx, lead, domain.AssignTaskCommand{TaskID: a.ID, MemberIDs: []string{alice.ID}})
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.False(t, res.AutoProgressed)

	res, err = f.svc.Assign(f.ctx, lead, domain.AssignTaskCommand{TaskID: a.ID, MemberIDs: []string{bob.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, res.Added)
	assert.False(t, res.AutoProgressed)
	assert.Equal(t, f.todo.ID, f.get(t, a.ID).StatusID)

	assignees, err := f.svc.Assignees(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, assignees, 2)

	require.NoError(t, f.svc.Unassign(f.ctx, lead, domain.UnassignTaskCommand{TaskID: a.ID, MemberID: bob.ID}))
	err = f.svc.Unassign(f.ctx, lead, domain.UnassignTaskCommand{TaskID: a.ID, MemberID: bob.ID})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, f.todo.ID, f.get(t, a.ID).StatusID)
}

func TestAssignRejectsNonMembers(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "A")

	_, err := f.svc.Assign(f.ctx, lead, domain.AssignTaskCommand{TaskID: a.ID, MemberIDs: []string{alice.ID, "mallory"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, []string{"mallory"}, de.IDs)

	assignees, err := f.svc.Assignees(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, assignees)
	assert.Equal(t, f.todo.ID, f.get(t, a.ID).StatusID)
}

func TestAutoProgressionWithoutIntermediateLane(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.DeleteStatus(f.ctx, lead, domain.DeleteStatusCommand{StatusID: f.doing.ID}))
	a := f.task(t, "A")

	res, err := f.svc.Assign(f.ctx, lead, domain.AssignTaskCommand{TaskID: a.ID, MemberIDs: []string{alice.ID}})
	require.NoError(t, err)
	assert.False(t, res.AutoProgressed)
	assert.Equal(t, f.todo.ID, f.get(t, a.ID).StatusID)
}

func TestCreateTaskWithAssigneesAndLabels(t *testing.T) {
	f := newFixture(t)
	bug, err := f.svc.CreateLabel(f.ctx, lead, f.project.ID, "bug", "#f00")
	require.NoError(t, err)

	task, err := f.svc.CreateTask(f.ctx, lead, domain.CreateTaskCommand{
		ProjectID:   f.project.ID,
		Title:       "  Fix login  ",
		Priority:    domain.PriorityHigh,
		AssigneeIDs: []string{alice.ID},
		LabelIDs:    []string{bug.ID, bug.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fix login", task.Title)
	assert.Equal(t, f.doing.ID, task.StatusID)

	tags, err := f.svc.Tags(f.ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	assert.Equal(t,
		[]events.Kind{events.TaskCreated, events.TaskAssigned, events.TaskAutoProgressed},
		kinds(f.events.all()))

	_, err = f.svc.CreateTask(f.ctx, lead, domain.CreateTaskCommand{
		ProjectID: f.project.ID, Title: "x", LabelIDs: []string{"nope"},
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSubtasks(t *testing.T) {
	f := newFixture(t)
	parent := f.task(t, "parent")
	child, err := f.svc.CreateTask(f.ctx, lead, domain.CreateTaskCommand{ProjectID: f.project.ID, Title: "child", ParentTaskID: &parent.ID})
	require.NoError(t, err)

	_, err = f.svc.CreateTask(f.ctx, lead, domain.CreateTaskCommand{ProjectID: f.project.ID, Title: "grandchild", ParentTaskID: &child.ID})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	missing := "missing"
	_, err = f.svc.CreateTask(f.ctx, lead, domain.CreateTaskCommand{ProjectID: f.project.ID, Title: "orphan", ParentTaskID: &missing})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	other := f.task(t, "other")
	require.NoError(t, f.svc.DeleteTask(f.ctx, lead, domain.DeleteTaskCommand{TaskID: parent.ID}))

	_, err = f.svc.Task(f.ctx, child.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 0, f.get(t, other.ID).Position)
	f.assertDense(t)
}

func TestMoveWithinAndAcrossLanes(t *testing.T) {
	f := newFixture(t)
	for _, title := range []string{"A", "B", "C", "D"} {
		f.task(t, title)
	}
	tasks, err := f.store.Tasks.Active(f.ctx, store.Lane{ProjectID: f.project.ID, StatusID: f.todo.ID})
	require.NoError(t, err)
	a, d := tasks[0], tasks[3]

	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.todo.ID, Position: intp(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A", "D"}, f.titles(t, f.todo))

	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: d.ID, StatusID: f.todo.ID, Position: intp(0)})
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B", "C", "A"}, f.titles(t, f.todo))

	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.todo.ID, Position: intp(4)})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.doing.ID, Position: intp(1)})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.doing.ID, Position: intp(0)})
	require.NoError(t, err)
	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: d.ID, StatusID: f.doing.ID, Position: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, f.titles(t, f.todo))
	assert.Equal(t, []string{"A", "D"}, f.titles(t, f.doing))

	before := f.get(t, d.ID).Version
	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: d.ID, StatusID: f.doing.ID, Position: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, before, f.get(t, d.ID).Version)
	f.assertDense(t)
}

func TestRandomMovesStayDense(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for i := 0; i < 12; i++ {
		ids = append(ids, f.task(t, fmt.Sprintf("task %d", i)).ID)
	}
	lanes := []domain.Status{f.todo, f.doing, f.done}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 80; i++ {
		task := f.get(t, ids[rng.Intn(len(ids))])
		target := lanes[rng.Intn(len(lanes))]
		size := len(f.titles(t, target))
		last := size
		if target.ID == task.StatusID {
			last = size - 1
		}
		var pos *int
		if rng.Intn(4) > 0 {
			pos = intp(rng.Intn(last + 1))
		}
		_, err := f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: task.ID, StatusID: target.ID, Position: pos})
		require.NoError(t, err)
	}

	f.assertDense(t)
	total := 0
	for _, l := range lanes {
		total += len(f.titles(t, l))
	}
	assert.Equal(t, len(ids), total)
}

func TestConcurrentMoves(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, f.task(t, fmt.Sprintf("task %d", i)).ID)
	}
	lanes := []domain.Status{f.todo, f.doing, f.done}

	g, ctx := errgroup.WithContext(f.ctx)
	for w := 0; w < 8; w++ {
		rng := rand.New(rand.NewSource(int64(w)))
		g.Go(func() error {
			for i := 0; i < 10; i++ {
				cmd := domain.MoveTaskCommand{
					TaskID:   ids[rng.Intn(len(ids))],
					StatusID: lanes[rng.Intn(len(lanes))].ID,
					Position: intp(0),
				}
				if _, err := f.svc.MoveTask(ctx, lead, cmd); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	f.assertDense(t)
}

func TestCompletionStamp(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "A")
	f.events.reset()

	moved, err := f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.done.ID})
	require.NoError(t, err)
	require.NotNil(t, moved.CompletedAt)
	stamp := *moved.CompletedAt
	assert.Equal(t, []events.Kind{events.TaskMoved, events.TaskCompleted}, kinds(f.events.all()))

	archive, err := f.svc.CreateStatus(f.ctx, lead, domain.CreateStatusCommand{ProjectID: f.project.ID, Name: "Shipped", IsCompleted: true})
	require.NoError(t, err)
	moved, err = f.svc.MoveTask(f.ctx, alice, domain.MoveTaskCommand{TaskID: a.ID, StatusID: archive.ID})
	require.NoError(t, err)
	require.NotNil(t, moved.CompletedAt)
	assert.True(t, stamp.Equal(*moved.CompletedAt))

	moved, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.doing.ID})
	require.NoError(t, err)
	assert.Nil(t, moved.CompletedAt)
	assert.Nil(t, f.get(t, a.ID).CompletedAt)

	yes, no := true, false
	_, err = f.svc.UpdateStatus(f.ctx, lead, domain.UpdateStatusCommand{StatusID: f.doing.ID, IsCompleted: &yes})
	require.NoError(t, err)
	assert.NotNil(t, f.get(t, a.ID).CompletedAt)

	_, err = f.svc.UpdateStatus(f.ctx, lead, domain.UpdateStatusCommand{StatusID: f.doing.ID, IsCompleted: &no})
	require.NoError(t, err)
	assert.Nil(t, f.get(t, a.ID).CompletedAt)
}

func TestDependencies(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.task(t, "A"), f.task(t, "B"), f.task(t, "C")

	add := func(from, to *domain.Task) error {
		_, err := f.svc.AddDependency(f.ctx, lead, domain.AddDependencyCommand{TaskID: from.ID, DependsOnTaskID: to.ID, Type: domain.DependencyBlocks})
		return err
	}

	require.NoError(t, add(a, b))
	require.NoError(t, add(b, c))
	assert.True(t, errors.Is(add(c, a), domain.ErrCycle))
	assert.True(t, errors.Is(add(b, a), domain.ErrCycle))
	assert.True(t, errors.Is(add(a, a), domain.ErrCycle))
	assert.True(t, errors.Is(add(a, b), domain.ErrValidation))
	require.NoError(t, add(a, c))

	deps, err := f.svc.Dependencies(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, deps, 2)

	require.NoError(t, f.svc.RemoveDependency(f.ctx, lead, domain.RemoveDependencyCommand{TaskID: b.ID, DependsOnTaskID: c.ID, Type: domain.DependencyBlocks}))
	require.NoError(t, add(c, b))

	err = f.svc.RemoveDependency(f.ctx, lead, domain.RemoveDependencyCommand{TaskID: b.ID, DependsOnTaskID: c.ID, Type: domain.DependencyBlocks})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDependencyAcrossProjects(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "A")

	other, _, err := f.svc.CreateProject(f.ctx, owner, ProjectSpec{WorkspaceID: f.project.WorkspaceID, Name: "Other"})
	require.NoError(t, err)
	x, err := f.svc.CreateTask(f.ctx, owner, domain.CreateTaskCommand{ProjectID: other.ID, Title: "X"})
	require.NoError(t, err)

	_, err = f.svc.AddDependency(f.ctx, lead, domain.AddDependencyCommand{TaskID: a.ID, DependsOnTaskID: x.ID, Type: domain.DependencyBlocks})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExpectedVersion(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "A")
	stale := a.Version

	title := "A2"
	updated, err := f.svc.UpdateTask(f.ctx, lead, domain.UpdateTaskCommand{TaskID: a.ID, Title: &title, ExpectedVersion: &stale})
	require.NoError(t, err)
	assert.Equal(t, stale+1, updated.Version)

	_, err = f.svc.UpdateTask(f.ctx, lead, domain.UpdateTaskCommand{TaskID: a.ID, Title: &title, ExpectedVersion: &stale})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.doing.ID, ExpectedVersion: &stale})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, f.todo.ID, f.get(t, a.ID).StatusID)
}

func TestArchiveRestoreDelete(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.task(t, "A"), f.task(t, "B"), f.task(t, "C")

	_, err := f.svc.ArchiveTask(f.ctx, lead, domain.ArchiveTaskCommand{TaskID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, f.titles(t, f.todo))

	_, err = f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.doing.ID})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = f.svc.ArchiveTask(f.ctx, lead, domain.ArchiveTaskCommand{TaskID: a.ID})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	restored, err := f.svc.RestoreTask(f.ctx, lead, domain.RestoreTaskCommand{TaskID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Position)
	assert.Equal(t, []string{"B", "C", "A"}, f.titles(t, f.todo))

	_, err = f.svc.RestoreTask(f.ctx, lead, domain.RestoreTaskCommand{TaskID: a.ID})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.svc.AddDependency(f.ctx, lead, domain.AddDependencyCommand{TaskID: c.ID, DependsOnTaskID: b.ID, Type: domain.DependencyBlocks})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteTask(f.ctx, lead, domain.DeleteTaskCommand{TaskID: b.ID}))
	assert.Equal(t, []string{"C", "A"}, f.titles(t, f.todo))

	deps, err := f.svc.Dependencies(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, deps)

	err = f.svc.DeleteTask(f.ctx, lead, domain.DeleteTaskCommand{TaskID: b.ID})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	f.assertDense(t)
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "A")

	urgent := domain.PriorityUrgent
	desc := "details"
	updated, err := f.svc.UpdateTask(f.ctx, lead, domain.UpdateTaskCommand{TaskID: a.ID, Priority: &urgent, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityUrgent, updated.Priority)

	evs := f.events.all()
	require.Len(t, evs, 2)
	assert.Equal(t, events.TaskUpdated, evs[1].Kind)
	assert.ElementsMatch(t, []string{"priority", "description"}, evs[1].Meta["fields"])

	_, err = f.svc.UpdateTask(f.ctx, lead, domain.UpdateTaskCommand{TaskID: "missing", Priority: &urgent})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStatusRules(t *testing.T) {
	f := newFixture(t)

	err := f.svc.DeleteStatus(f.ctx, lead, domain.DeleteStatusCommand{StatusID: f.todo.ID})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	no, yes := false, true
	_, err = f.svc.UpdateStatus(f.ctx, lead, domain.UpdateStatusCommand{StatusID: f.todo.ID, IsDefault: &no})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = f.svc.UpdateStatus(f.ctx, lead, domain.UpdateStatusCommand{StatusID: f.done.ID, IsDefault: &yes})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.svc.CreateStatus(f.ctx, lead, domain.CreateStatusCommand{ProjectID: f.project.ID, Name: "Doing"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	backlog, err := f.svc.CreateStatus(f.ctx, lead, domain.CreateStatusCommand{ProjectID: f.project.ID, Name: "Backlog", IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, 3, backlog.Position)

	lanes, err := f.svc.Lanes(f.ctx, f.project.ID)
	require.NoError(t, err)
	defaults := 0
	for _, l := range lanes {
		if l.IsDefault {
			defaults++
			assert.Equal(t, backlog.ID, l.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	reordered, err := f.svc.ReorderStatuses(f.ctx, lead, domain.ReorderStatusesCommand{
		ProjectID: f.project.ID,
		StatusIDs: []string{backlog.ID, f.todo.ID, f.doing.ID, f.done.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, backlog.ID, reordered[0].ID)

	_, err = f.svc.ReorderStatuses(f.ctx, lead, domain.ReorderStatusesCommand{ProjectID: f.project.ID, StatusIDs: []string{backlog.ID}})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestDeleteStatusMovesTasksToDefault(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.task(t, "A"), f.task(t, "B"), f.task(t, "C")
	for _, task := range []*domain.Task{a, b, c} {
		_, err := f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: task.ID, StatusID: f.doing.ID})
		require.NoError(t, err)
	}
	_, err := f.svc.ArchiveTask(f.ctx, lead, domain.ArchiveTaskCommand{TaskID: c.ID})
	require.NoError(t, err)
	f.task(t, "D")

	require.NoError(t, f.svc.DeleteStatus(f.ctx, lead, domain.DeleteStatusCommand{StatusID: f.doing.ID}))
	assert.Equal(t, []string{"D", "A", "B"}, f.titles(t, f.todo))
	assert.Equal(t, f.todo.ID, f.get(t, c.ID).StatusID)

	lanes, err := f.svc.Lanes(f.ctx, f.project.ID)
	require.NoError(t, err)
	require.Len(t, lanes, 2)
	assert.Equal(t, 1, lanes[1].Position)

	_, err = f.svc.RestoreTask(f.ctx, lead, domain.RestoreTaskCommand{TaskID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "A", "B", "C"}, f.titles(t, f.todo))
	f.assertDense(t)
}

func TestCreateTaskWithoutDefaultLane(t *testing.T) {
	f := newFixture(t)
	p := &domain.Project{WorkspaceID: f.project.WorkspaceID, Name: "Bare"}
	require.NoError(t, f.store.Projects.Create(f.ctx, p))

	_, err := f.svc.CreateTask(f.ctx, lead, domain.CreateTaskCommand{ProjectID: p.ID, Title: "A"})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = f.svc.CreateTask(f.ctx, lead, domain.CreateTaskCommand{ProjectID: "missing", Title: "A"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreateProjectValidation(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.CreateProject(f.ctx, owner, ProjectSpec{
		WorkspaceID: f.project.WorkspaceID,
		Name:        "Bad",
		Lanes:       []LaneSpec{{Name: "Done", IsCompleted: true}},
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, _, err = f.svc.CreateProject(f.ctx, owner, ProjectSpec{WorkspaceID: "missing", Name: "Nowhere"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	p, lanes, err := f.svc.CreateProject(f.ctx, owner, ProjectSpec{WorkspaceID: f.project.WorkspaceID, Name: "Defaults"})
	require.NoError(t, err)
	require.Len(t, lanes, len(DefaultLanes))
	assert.True(t, lanes[0].IsDefault)
	assert.True(t, lanes[2].IsCompleted)

	projects, err := f.svc.Projects(f.ctx, f.project.WorkspaceID)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
	assert.NotEmpty(t, p.ID)
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	f := newFixture(t)
	a := f.task(t, "A")
	f.events.reset()

	_, err := f.svc.Assign(f.ctx, lead, domain.AssignTaskCommand{TaskID: a.ID, MemberIDs: []string{alice.ID}})
	require.NoError(t, err)
	evs := f.events.all()
	require.Equal(t, []events.Kind{events.TaskAssigned, events.TaskAutoProgressed}, kinds(evs))
	assert.Equal(t, domain.ActorTypeSystem, evs[1].ActorType)
	assert.Equal(t, f.todo.ID, *evs[1].FromState)
	assert.Equal(t, f.doing.ID, *evs[1].ToState)

	f.events.reset()
	_, err = f.svc.MoveTask(f.ctx, bob, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.done.ID})
	require.Error(t, err)
	assert.Empty(t, f.events.all())
}

func TestActivityTrail(t *testing.T) {
	f := newFixture(t)
	d := events.NewDispatcher(events.DefaultOptions(), events.NewActivitySink(f.store.Activity))
	f.svc.publisher = d
	t.Cleanup(func() { _ = d.Close(context.Background()) })

	a := f.task(t, "A")
	_, err := f.svc.MoveTask(f.ctx, lead, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.done.ID})
	require.NoError(t, err)
	require.NoError(t, d.Flush(f.ctx))

	trail, err := f.svc.Activity(f.ctx, a.ID)
	require.NoError(t, err)
	var actions []string
	for _, rec := range trail {
		actions = append(actions, rec.Action)
	}
	assert.Equal(t, []string{"task.created", "task.moved"}, actions)
}

func TestExecuteToolCalls(t *testing.T) {
	f := newFixture(t)

	cmd, err := domain.DecodeToolCall("create_task", []byte(fmt.Sprintf(
		`{"project_id": %q, "title": "From a tool", "priority": "low", "assignee_ids": [%q]}`, f.project.ID, alice.ID)))
	require.NoError(t, err)
	res, err := f.svc.Execute(f.ctx, lead, cmd)
	require.NoError(t, err)
	task, ok := res.(*domain.Task)
	require.True(t, ok)
	assert.Equal(t, f.doing.ID, task.StatusID)

	cmd, err = domain.DecodeToolCall("move_task", []byte(fmt.Sprintf(`{"task_id": %q, "status_id": %q, "position": 0}`, task.ID, f.done.ID)))
	require.NoError(t, err)
	_, err = f.svc.Execute(f.ctx, alice, cmd)
	require.NoError(t, err)
	assert.NotNil(t, f.get(t, task.ID).CompletedAt)

	cmd, err = domain.DecodeToolCall("delete_task", []byte(fmt.Sprintf(`{"task_id": %q}`, task.ID)))
	require.NoError(t, err)
	res, err = f.svc.Execute(f.ctx, lead, cmd)
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = f.svc.Execute(f.ctx, lead, nil)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestActorRequired(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateTask(f.ctx, domain.Actor{}, domain.CreateTaskCommand{ProjectID: f.project.ID, Title: "A"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestCheckDense(t *testing.T) {
	assert.Empty(t, checkDense(nil))
	assert.Empty(t, checkDense([]int{0, 1, 2}))
	assert.Equal(t, "expected position 1, found 2", checkDense([]int{0, 2}))
}
