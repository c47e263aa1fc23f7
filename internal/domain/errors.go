package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced to callers of the board engine.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrPermission    = errors.New("permission denied")
	ErrCycle         = errors.New("dependency cycle")
	ErrConfiguration = errors.New("configuration error")
	ErrConflict      = errors.New("conflict")
)

// Error is a typed engine failure. Kind is one of the sentinels above and
// Err optionally carries the underlying cause.
type Error struct {
	Op      string
	Kind    error
	Entity  string
	IDs     []string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
	}
	if len(e.IDs) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.IDs, ", "))
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WithOp returns a copy of e tagged with the failing operation.
func (e *Error) WithOp(op string) *Error {
	c := *e
	c.Op = op
	return &c
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: ErrNotFound, Entity: entity, IDs: []string{id}}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// InvalidReferences names every id that does not belong to the project.
func InvalidReferences(entity string, ids []string) *Error {
	return &Error{Kind: ErrValidation, Entity: entity, IDs: ids, Message: "not part of the project"}
}

func Permission(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrPermission, Message: fmt.Sprintf(format, args...)}
}

func Cycle(taskID, dependsOnID string) *Error {
	return &Error{
		Kind:    ErrCycle,
		Entity:  "dependency",
		IDs:     []string{taskID, dependsOnID},
		Message: fmt.Sprintf("%s is already reachable from %s", taskID, dependsOnID),
	}
}

func Configuration(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConfiguration, Message: fmt.Sprintf(format, args...)}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: ErrConflict, Message: message, Err: err}
}

// KindOf returns the sentinel kind carried by err, or nil.
func KindOf(err error) error {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return nil
}
