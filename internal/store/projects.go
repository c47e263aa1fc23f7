package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/eleven-am/taskboard/internal/domain"
	"github.com/eleven-am/taskboard/internal/orm"
)

type ProjectRepository interface {
	CreateWorkspace(ctx context.Context, w *domain.Workspace) error
	Workspace(ctx context.Context, id string) (*domain.Workspace, error)
	AddWorkspaceMember(ctx context.Context, m *domain.WorkspaceMembership) error
	Create(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, workspaceID string) ([]domain.Project, error)
	AddMember(ctx context.Context, m *domain.ProjectMembership) error
	Members(ctx context.Context, projectID string) ([]domain.ProjectMembership, error)
	// MembersAmong returns the subset of memberIDs that belong to the project.
	MembersAmong(ctx context.Context, projectID string, memberIDs []string) ([]string, error)
	// Lock serialises board mutations for a project until the surrounding
	// transaction ends.
	Lock(ctx context.Context, projectID string) error
}

type projectRepo struct{ base }

func (r *projectRepo) CreateWorkspace(ctx context.Context, w *domain.Workspace) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.CreatedAt = r.now()
	q := r.sb.Insert("workspaces").
		Columns("id", "name", "created_at").
		Values(w.ID, w.Name, w.CreatedAt)
	_, err := orm.Exec(ctx, r.db, q, "create", "workspaces")
	return err
}

func (r *projectRepo) Workspace(ctx context.Context, id string) (*domain.Workspace, error) {
	var w domain.Workspace
	q := r.sb.Select("id", "name", "created_at").From("workspaces").Where(projectCol.ID.Eq(id))
	if err := orm.Get(ctx, r.db, &w, q, "get", "workspaces"); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *projectRepo) AddWorkspaceMember(ctx context.Context, m *domain.WorkspaceMembership) error {
	m.CreatedAt = r.now()
	q := r.sb.Insert("workspace_members").
		Columns("workspace_id", "member_id", "role", "created_at").
		Values(m.WorkspaceID, m.MemberID, m.Role, m.CreatedAt)
	_, err := orm.Exec(ctx, r.db, q, "add member", "workspace_members")
	return err
}

func (r *projectRepo) Create(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = r.now()
	q := r.sb.Insert("projects").
		Columns("id", "workspace_id", "name", "lead_id", "created_at").
		Values(p.ID, p.WorkspaceID, p.Name, p.LeadID, p.CreatedAt)
	_, err := orm.Exec(ctx, r.db, q, "create", "projects")
	return err
}

func (r *projectRepo) Get(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	q := r.sb.Select("id", "workspace_id", "name", "lead_id", "created_at").
		From("projects").
		Where(projectCol.ID.Eq(id))
	if err := orm.Get(ctx, r.db, &p, q, "get", "projects"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) List(ctx context.Context, workspaceID string) ([]domain.Project, error) {
	var out []domain.Project
	q := r.sb.Select("id", "workspace_id", "name", "lead_id", "created_at").
		From("projects").
		OrderBy("created_at", "id")
	if workspaceID != "" {
		q = q.Where(projectCol.WorkspaceID.Eq(workspaceID))
	}
	err := orm.Select(ctx, r.db, &out, q, "list", "projects")
	return out, err
}

func (r *projectRepo) AddMember(ctx context.Context, m *domain.ProjectMembership) error {
	m.CreatedAt = r.now()
	q := r.insertIgnore("project_members").
		Columns("project_id", "member_id", "role", "created_at").
		Values(m.ProjectID, m.MemberID, m.Role, m.CreatedAt)
	_, err := orm.Exec(ctx, r.db, q, "add member", "project_members")
	return err
}

func (r *projectRepo) Members(ctx context.Context, projectID string) ([]domain.ProjectMembership, error) {
	var out []domain.ProjectMembership
	q := r.sb.Select("project_id", "member_id", "role", "created_at").
		From("project_members").
		Where(memberCol.ProjectID.Eq(projectID)).
		OrderBy("member_id")
	err := orm.Select(ctx, r.db, &out, q, "members", "project_members")
	return out, err
}

func (r *projectRepo) MembersAmong(ctx context.Context, projectID string, memberIDs []string) ([]string, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	var found []string
	q := r.sb.Select("member_id").
		From("project_members").
		Where(orm.And(memberCol.ProjectID.Eq(projectID), memberCol.MemberID.In(memberIDs...)))
	err := orm.Select(ctx, r.db, &found, q, "members among", "project_members")
	return found, err
}

func (r *projectRepo) Lock(ctx context.Context, projectID string) error {
	q := r.sb.Select("id").From("projects").Where(projectCol.ID.Eq(projectID))
	if r.dialect.SupportsRowLocks() {
		q = q.Suffix("FOR UPDATE")
	}
	var id string
	return orm.Get(ctx, r.db, &id, q, "lock", "projects")
}
