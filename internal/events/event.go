// Package events carries board events out of committed transactions to
// best-effort sinks: the activity log, Redis notifications and the process log.
package events

import (
	"time"

	"github.com/eleven-am/taskboard/internal/domain"
)

type Kind string

const (
	TaskCreated        Kind = "task.created"
	TaskUpdated        Kind = "task.updated"
	TaskMoved          Kind = "task.moved"
	TaskAutoProgressed Kind = "task.auto_progressed"
	TaskArchived       Kind = "task.archived"
	TaskRestored       Kind = "task.restored"
	TaskDeleted        Kind = "task.deleted"
	TaskAssigned       Kind = "task.assigned"
	TaskUnassigned     Kind = "task.unassigned"
	TaskCompleted      Kind = "task.completed"
	DependencyAdded    Kind = "dependency.added"
)

// IsActivity reports whether the event belongs in the task's audit trail.
func (k Kind) IsActivity() bool {
	switch k {
	case TaskCreated, TaskUpdated, TaskMoved, TaskAutoProgressed, TaskArchived,
		TaskRestored, TaskDeleted, TaskAssigned, TaskUnassigned:
		return true
	}
	return false
}

// IsNotification reports whether the event is delivered to people.
func (k Kind) IsNotification() bool {
	switch k {
	case TaskAssigned, TaskCompleted, DependencyAdded:
		return true
	}
	return false
}

type Event struct {
	Kind       Kind                   `json:"kind"`
	ProjectID  string                 `json:"project_id"`
	TaskID     string                 `json:"task_id"`
	ActorID    string                 `json:"actor_id"`
	ActorType  string                 `json:"actor_type"`
	FromState  *string                `json:"from_state,omitempty"`
	ToState    *string                `json:"to_state,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// New builds an event for task t performed by actor.
func New(kind Kind, actor domain.Actor, t *domain.Task, at time.Time) Event {
	return Event{
		Kind:       kind,
		ProjectID:  t.ProjectID,
		TaskID:     t.ID,
		ActorID:    actor.ID,
		ActorType:  actor.Type(),
		OccurredAt: at,
	}
}

// Transition sets the lane change carried by the event.
func (e Event) Transition(from, to string) Event {
	if from != "" {
		e.FromState = &from
	}
	if to != "" {
		e.ToState = &to
	}
	return e
}

// With adds a metadata entry.
func (e Event) With(key string, value interface{}) Event {
	meta := make(map[string]interface{}, len(e.Meta)+1)
	for k, v := range e.Meta {
		meta[k] = v
	}
	meta[key] = value
	e.Meta = meta
	return e
}

// Buffer collects the events of one transaction. It is not safe for
// concurrent use.
type Buffer struct {
	events []Event
}

func (b *Buffer) Add(e ...Event) { b.events = append(b.events, e...) }

func (b *Buffer) Events() []Event { return b.events }
