package board

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/orm"
	dbtest "github.com/eleven-am/taskboard/internal/testing"
)

func TestPostgresConcurrentBoard(t *testing.T) {
	tdb := dbtest.NewTestDB(t)
	f := newFixtureOn(t, tdb.DB, orm.Postgres)

	exists, err := tdb.IndexExists("tasks_active_position_idx")
	require.NoError(t, err)
	require.True(t, exists)

	var ids []string
	for i := 0; i < 16; i++ {
		ids = append(ids, f.task(t, fmt.Sprintf("task %d", i)).ID)
	}
	lanes := []domain.Status{f.todo, f.doing, f.done}

	g, ctx := errgroup.WithContext(f.ctx)
	for w := 0; w < 8; w++ {
		rng := rand.New(rand.NewSource(int64(w)))
		g.Go(func() error {
			for i := 0; i < 20; i++ {
				id := ids[rng.Intn(len(ids))]
				switch rng.Intn(3) {
				case 0:
					_, err := f.svc.Assign(ctx, lead, domain.AssignTaskCommand{TaskID: id, MemberIDs: []string{alice.ID}})
					if err != nil {
						return err
					}
				default:
					cmd := domain.MoveTaskCommand{TaskID: id, StatusID: lanes[rng.Intn(len(lanes))].ID, Position: intp(0)}
					if _, err := f.svc.MoveTask(ctx, lead, cmd); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	f.assertDense(t)

	total := 0
	for _, l := range lanes {
		total += len(f.titles(t, l))
	}
	assert.Equal(t, len(ids), total)
}

func TestPostgresScenario(t *testing.T) {
	tdb := dbtest.NewTestDB(t)
	f := newFixtureOn(t, tdb.DB, orm.Postgres)

	a := f.task(t, "A")
	b := f.task(t, "B")
	_, err := f.svc.Assign(f.ctx, lead, domain.AssignTaskCommand{TaskID: a.ID, MemberIDs: []string{alice.ID}})
	require.NoError(t, err)

	assert.Equal(t, f.doing.ID, f.get(t, a.ID).StatusID)
	assert.Equal(t, 0, f.get(t, b.ID).Position)

	_, err = f.svc.MoveTask(f.ctx, bob, domain.MoveTaskCommand{TaskID: a.ID, StatusID: f.done.ID})
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = f.svc.AddDependency(f.ctx, lead, domain.AddDependencyCommand{TaskID: a.ID, DependsOnTaskID: b.ID, Type: domain.DependencyBlocks})
	require.NoError(t, err)
	_, err = f.svc.AddDependency(f.ctx, lead, domain.AddDependencyCommand{TaskID: b.ID, DependsOnTaskID: a.ID, Type: domain.DependencyBlocks})
	assert.ErrorIs(t, err, domain.ErrCycle)
}
