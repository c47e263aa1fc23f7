package board

import (
	"context"

	"github.com/eleven-am/taskboard/internal/store"
)

// Violation describes a lane whose active positions are not 0..n-1.
type Violation struct {
	StatusID string
	Detail   string
}

// VerifyProject checks the density of every lane of a project.
func (s *Service) VerifyProject(ctx context.Context, projectID string) ([]Violation, error) {
	lanes, err := s.Lanes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var out []Violation
	for _, l := range lanes {
		positions, err := s.store.Tasks.Positions(ctx, store.Lane{ProjectID: projectID, StatusID: l.ID})
		if err != nil {
			return nil, s.fail("VerifyProject", err)
		}
		if msg := checkDense(positions); msg != "" {
			out = append(out, Violation{StatusID: l.ID, Detail: msg})
		}
	}
	return out, nil
}
