package board

import (
	"errors"
	"fmt"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/store"
)

// errDensity reports a lane whose positions are not 0..n-1 after a reorder.
var errDensity = errors.New("lane positions are not dense")

func notFoundAs(err error, entity, id string) error {
	if errors.Is(err, orm.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return err
}

// fail maps store failures onto the engine's error taxonomy.
func (s *Service) fail(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.WithOp(op)
	}

	switch {
	case errors.Is(err, store.ErrStaleVersion):
		return domain.Conflict("task was modified concurrently", err).WithOp(op)
	case orm.IsTransient(err):
		return domain.Conflict("concurrent modification, retry the operation", err).WithOp(op)
	case errors.Is(err, orm.ErrNotFound):
		return (&domain.Error{Kind: domain.ErrNotFound, Err: err}).WithOp(op)
	case orm.IsConstraintError(err):
		return (&domain.Error{Kind: domain.ErrValidation, Message: constraintMessage(err), Err: err}).WithOp(op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func constraintMessage(err error) string {
	msg := "constraint violation"
	if errors.Is(err, orm.ErrDuplicateKey) {
		msg = "duplicate key"
	}
	if name := orm.GetConstraintName(err); name != "" {
		msg += " on " + name
	}
	return msg
}
