package board

import (
	"context"
	"fmt"
	"time"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/store"
)

func laneOf(task *domain.Task) store.Lane {
	return store.Lane{ProjectID: task.ProjectID, StatusID: task.StatusID}
}

// move relocates task to target at position pos (nil means the tail) and
// records completedAt. Both touched lanes stay dense. It returns the final
// position and updates task in place.
func (t *txn) move(ctx context.Context, task *domain.Task, target *domain.Status, pos *int, completedAt *time.Time) (int, error) {
	if target.ProjectID != task.ProjectID {
		return 0, domain.Validation("status %s does not belong to project %s", target.ID, task.ProjectID)
	}
	if task.IsArchived() {
		return 0, domain.Validation("task %s is archived", task.ID)
	}

	src := laneOf(task)
	dst := store.Lane{ProjectID: task.ProjectID, StatusID: target.ID}
	old := task.Position

	count, err := t.st.Tasks.Count(ctx, dst)
	if err != nil {
		return 0, err
	}

	sameLane := src == dst
	last := count
	if sameLane {
		last = count - 1
	}
	final := last
	if pos != nil {
		final = *pos
	}
	if final < 0 || final > last {
		return 0, domain.Validation("position %d is out of range [0, %d]", final, last)
	}

	if sameLane && final == old {
		if !sameTime(task.CompletedAt, completedAt) {
			if err := t.st.Tasks.Place(ctx, task.ID, target.ID, final, completedAt); err != nil {
				return 0, err
			}
			task.CompletedAt = completedAt
			task.Version++
		}
		return final, nil
	}

	if err := t.st.Tasks.Park(ctx, task.ID); err != nil {
		return 0, err
	}

	switch {
	case sameLane && final > old:
		if err := t.st.Tasks.ShiftPositions(ctx, src, old+1, &final, -1); err != nil {
			return 0, err
		}
	case sameLane:
		upper := old - 1
		if err := t.st.Tasks.ShiftPositions(ctx, src, final, &upper, 1); err != nil {
			return 0, err
		}
	default:
		if err := t.st.Tasks.ShiftPositions(ctx, src, old+1, nil, -1); err != nil {
			return 0, err
		}
		if err := t.st.Tasks.ShiftPositions(ctx, dst, final, nil, 1); err != nil {
			return 0, err
		}
	}

	if err := t.st.Tasks.Place(ctx, task.ID, target.ID, final, completedAt); err != nil {
		return 0, err
	}

	task.StatusID = target.ID
	task.Position = final
	task.CompletedAt = completedAt
	task.Version++

	if err := t.verify(ctx, src); err != nil {
		return 0, err
	}
	if !sameLane {
		if err := t.verify(ctx, dst); err != nil {
			return 0, err
		}
	}
	return final, nil
}

// insertPosition is the tail slot of a lane.
func (t *txn) insertPosition(ctx context.Context, lane store.Lane) (int, error) {
	return t.st.Tasks.NextPosition(ctx, lane)
}

// closeGap shifts every active task after position down by one. The task
// that held position must already be out of the active lane.
func (t *txn) closeGap(ctx context.Context, lane store.Lane, position int) error {
	if err := t.st.Tasks.ShiftPositions(ctx, lane, position+1, nil, -1); err != nil {
		return err
	}
	return t.verify(ctx, lane)
}

func (t *txn) verify(ctx context.Context, lane store.Lane) error {
	if !t.svc.cfg.VerifyDensity {
		return nil
	}
	positions, err := t.st.Tasks.Positions(ctx, lane)
	if err != nil {
		return err
	}
	if msg := checkDense(positions); msg != "" {
		return fmt.Errorf("status %s: %s: %w", lane.StatusID, msg, errDensity)
	}
	return nil
}

// checkDense describes the first deviation of sorted positions from 0..n-1,
// or returns "" when there is none.
func checkDense(positions []int) string {
	for i, p := range positions {
		if p != i {
			return fmt.Sprintf("expected position %d, found %d", i, p)
		}
	}
	return ""
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
