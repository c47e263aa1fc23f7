package domain

// Actor identifies who is performing an operation. The auth layer resolves
// roles before the engine is called; the engine trusts them.
type Actor struct {
	ID            string
	ProjectRole   ProjectRole
	WorkspaceRole WorkspaceRole
	System        bool
}

// SystemActor performs engine-initiated transitions such as auto-progression.
var SystemActor = Actor{ID: "system", System: true}

const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"
)

func (a Actor) Type() string {
	if a.System {
		return ActorTypeSystem
	}
	return ActorTypeUser
}

// Privileged reports whether the actor may complete tasks it is not assigned to.
func (a Actor) Privileged() bool {
	return a.System ||
		a.ProjectRole == ProjectLead ||
		a.WorkspaceRole == WorkspaceOwner ||
		a.WorkspaceRole == WorkspaceAdmin
}

func (a Actor) Validate() error {
	if a.ID == "" {
		return Validation("actor id is required")
	}
	return nil
}
