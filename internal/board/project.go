package board

import (
	"context"
	"strings"

	"github.com/eleven-am/taskboard/internal/domain"
)

// ProjectSpec describes a new project. Without lanes the project receives
// DefaultLanes; without an explicit default the first lane becomes default.
type ProjectSpec struct {
	WorkspaceID string
	Name        string
	LeadID      *string
	Lanes       []LaneSpec
}

// CreateWorkspace creates a workspace owned by the actor.
func (s *Service) CreateWorkspace(ctx context.Context, actor domain.Actor, name string) (*domain.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, s.fail("CreateWorkspace", domain.Validation("workspace name is required"))
	}

	var out *domain.Workspace
	err := s.mutate(ctx, "CreateWorkspace", actor, func(ctx context.Context, t *txn) error {
		w := &domain.Workspace{Name: name}
		if err := t.st.Projects.CreateWorkspace(ctx, w); err != nil {
			return err
		}
		if !actor.System {
			m := &domain.WorkspaceMembership{WorkspaceID: w.ID, MemberID: actor.ID, Role: domain.WorkspaceOwner}
			if err := t.st.Projects.AddWorkspaceMember(ctx, m); err != nil {
				return err
			}
		}
		out = w
		return nil
	})
	return out, err
}

// CreateProject creates a project together with its lanes.
func (s *Service) CreateProject(ctx context.Context, actor domain.Actor, def ProjectSpec) (*domain.Project, []domain.Status, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return nil, nil, s.fail("CreateProject", domain.Validation("project name is required"))
	}
	lanes := def.Lanes
	if len(lanes) == 0 {
		lanes = DefaultLanes
	}
	if err := validateLanes(lanes); err != nil {
		return nil, nil, s.fail("CreateProject", err)
	}
	hasDefault := false
	for _, l := range lanes {
		hasDefault = hasDefault || l.IsDefault
	}
	if !hasDefault {
		if lanes[0].IsCompleted {
			return nil, nil, s.fail("CreateProject", domain.Validation("the first lane becomes the default and cannot be completed"))
		}
		lanes = append([]LaneSpec(nil), lanes...)
		lanes[0].IsDefault = true
	}

	var (
		project  *domain.Project
		statuses []domain.Status
	)
	err := s.mutate(ctx, "CreateProject", actor, func(ctx context.Context, t *txn) error {
		if _, err := t.st.Projects.Workspace(ctx, def.WorkspaceID); err != nil {
			return notFoundAs(err, "workspace", def.WorkspaceID)
		}
		p := &domain.Project{WorkspaceID: def.WorkspaceID, Name: name, LeadID: def.LeadID}
		if err := t.st.Projects.Create(ctx, p); err != nil {
			return err
		}
		if def.LeadID != nil {
			m := &domain.ProjectMembership{ProjectID: p.ID, MemberID: *def.LeadID, Role: domain.ProjectLead}
			if err := t.st.Projects.AddMember(ctx, m); err != nil {
				return err
			}
		}

		statuses = make([]domain.Status, 0, len(lanes))
		for i, l := range lanes {
			st := domain.Status{
				ProjectID:   p.ID,
				Name:        strings.TrimSpace(l.Name),
				Color:       l.Color,
				Position:    i,
				IsDefault:   l.IsDefault,
				IsCompleted: l.IsCompleted,
			}
			if err := t.st.Statuses.Create(ctx, &st); err != nil {
				return err
			}
			statuses = append(statuses, st)
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return project, statuses, nil
}

// AddProjectMember grants a member a role in a project. Adding an existing
// member is a no-op.
func (s *Service) AddProjectMember(ctx context.Context, actor domain.Actor, projectID, memberID string, role domain.ProjectRole) error {
	switch role {
	case domain.ProjectLead, domain.ProjectMember, domain.ProjectViewer:
	default:
		return s.fail("AddProjectMember", domain.Validation("unknown project role %q", role))
	}
	if memberID == "" {
		return s.fail("AddProjectMember", domain.Validation("member id is required"))
	}
	return s.mutate(ctx, "AddProjectMember", actor, func(ctx context.Context, t *txn) error {
		if err := t.lockProject(ctx, projectID); err != nil {
			return err
		}
		return t.st.Projects.AddMember(ctx, &domain.ProjectMembership{ProjectID: projectID, MemberID: memberID, Role: role})
	})
}

func (s *Service) ProjectMembers(ctx context.Context, projectID string) ([]domain.ProjectMembership, error) {
	out, err := s.store.Projects.Members(ctx, projectID)
	if err != nil {
		return nil, s.fail("ProjectMembers", err)
	}
	return out, nil
}

func (s *Service) CreateLabel(ctx context.Context, actor domain.Actor, projectID, name, color string) (*domain.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, s.fail("CreateLabel", domain.Validation("label name is required"))
	}
	var out *domain.Label
	err := s.mutate(ctx, "CreateLabel", actor, func(ctx context.Context, t *txn) error {
		if err := t.lockProject(ctx, projectID); err != nil {
			return err
		}
		l := &domain.Label{ProjectID: projectID, Name: name, Color: color}
		if err := t.st.Labels.Create(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	return out, err
}

func (s *Service) Project(ctx context.Context, id string) (*domain.Project, error) {
	p, err := s.store.Projects.Get(ctx, id)
	if err != nil {
		return nil, s.fail("Project", notFoundAs(err, "project", id))
	}
	return p, nil
}

func (s *Service) Projects(ctx context.Context, workspaceID string) ([]domain.Project, error) {
	out, err := s.store.Projects.List(ctx, workspaceID)
	if err != nil {
		return nil, s.fail("Projects", err)
	}
	return out, nil
}
