package domain

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

type toolDecoder func(args gjson.Result) (Command, error)

var toolDecoders = map[string]toolDecoder{
	"create_task":       decodeCreateTask,
	"update_task":       decodeUpdateTask,
	"move_task":         decodeMoveTask,
	"assign_task":       decodeAssignTask,
	"unassign_task":     decodeUnassignTask,
	"add_dependency":    decodeAddDependency,
	"remove_dependency": decodeRemoveDependency,
	"tag_task":          decodeTagTask,
	"untag_task":        decodeUntagTask,
	"archive_task":      func(a gjson.Result) (Command, error) { return decodeTaskOnly(a, archive) },
	"restore_task":      func(a gjson.Result) (Command, error) { return decodeTaskOnly(a, restore) },
	"delete_task":       func(a gjson.Result) (Command, error) { return decodeTaskOnly(a, remove) },
}

// DecodeToolCall turns an untyped tool-call payload into a validated command.
// Unknown tools, malformed JSON and fields of the wrong JSON type are
// validation errors.
func DecodeToolCall(name string, args []byte) (Command, error) {
	decode, ok := toolDecoders[name]
	if !ok {
		return nil, Validation("unknown tool %q", name)
	}
	if len(args) == 0 {
		args = []byte("{}")
	}
	if !gjson.ValidBytes(args) {
		return nil, Validation("tool %s: arguments are not valid JSON", name)
	}
	root := gjson.ParseBytes(args)
	if !root.IsObject() {
		return nil, Validation("tool %s: arguments must be a JSON object", name)
	}

	cmd, err := decode(root)
	if err != nil {
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeCreateTask(a gjson.Result) (Command, error) {
	var (
		cmd CreateTaskCommand
		err error
	)
	if cmd.ProjectID, err = requiredString(a, "project_id"); err != nil {
		return nil, err
	}
	if cmd.Title, err = requiredString(a, "title"); err != nil {
		return nil, err
	}
	if cmd.Description, err = optionalString(a, "description"); err != nil {
		return nil, err
	}
	priority, err := optionalString(a, "priority")
	if err != nil {
		return nil, err
	}
	if priority != nil {
		cmd.Priority = Priority(*priority)
	}
	if cmd.DueDate, err = optionalTime(a, "due_date"); err != nil {
		return nil, err
	}
	if cmd.ParentTaskID, err = optionalString(a, "parent_task_id"); err != nil {
		return nil, err
	}
	if cmd.AssigneeIDs, err = stringArray(a, "assignee_ids"); err != nil {
		return nil, err
	}
	if cmd.LabelIDs, err = stringArray(a, "label_ids"); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeUpdateTask(a gjson.Result) (Command, error) {
	var (
		cmd UpdateTaskCommand
		err error
	)
	if cmd.TaskID, err = requiredString(a, "task_id"); err != nil {
		return nil, err
	}
	if cmd.Title, err = optionalString(a, "title"); err != nil {
		return nil, err
	}
	if cmd.Description, err = optionalString(a, "description"); err != nil {
		return nil, err
	}
	priority, err := optionalString(a, "priority")
	if err != nil {
		return nil, err
	}
	if priority != nil {
		p := Priority(*priority)
		cmd.Priority = &p
	}
	due := a.Get("due_date")
	if due.Type == gjson.Null && due.Exists() {
		cmd.ClearDueDate = true
	} else if cmd.DueDate, err = optionalTime(a, "due_date"); err != nil {
		return nil, err
	}
	if cmd.ExpectedVersion, err = optionalInt(a, "expected_version"); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeMoveTask(a gjson.Result) (Command, error) {
	var (
		cmd MoveTaskCommand
		err error
	)
	if cmd.TaskID, err = requiredString(a, "task_id"); err != nil {
		return nil, err
	}
	if cmd.StatusID, err = requiredString(a, "status_id"); err != nil {
		return nil, err
	}
	if cmd.Position, err = optionalInt(a, "position"); err != nil {
		return nil, err
	}
	if cmd.ExpectedVersion, err = optionalInt(a, "expected_version"); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeAssignTask(a gjson.Result) (Command, error) {
	var (
		cmd AssignTaskCommand
		err error
	)
	if cmd.TaskID, err = requiredString(a, "task_id"); err != nil {
		return nil, err
	}
	if cmd.MemberIDs, err = stringArray(a, "member_ids"); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeUnassignTask(a gjson.Result) (Command, error) {
	var (
		cmd UnassignTaskCommand
		err error
	)
	if cmd.TaskID, err = requiredString(a, "task_id"); err != nil {
		return nil, err
	}
	if cmd.MemberID, err = requiredString(a, "member_id"); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeEdge(a gjson.Result) (string, string, DependencyType, error) {
	taskID, err := requiredString(a, "task_id")
	if err != nil {
		return "", "", "", err
	}
	dependsOn, err := requiredString(a, "depends_on_task_id")
	if err != nil {
		return "", "", "", err
	}
	typ := DependencyBlocks
	raw, err := optionalString(a, "type")
	if err != nil {
		return "", "", "", err
	}
	if raw != nil {
		typ = DependencyType(*raw)
	}
	return taskID, dependsOn, typ, nil
}

func decodeAddDependency(a gjson.Result) (Command, error) {
	taskID, dependsOn, typ, err := decodeEdge(a)
	if err != nil {
		return nil, err
	}
	return AddDependencyCommand{TaskID: taskID, DependsOnTaskID: dependsOn, Type: typ}, nil
}

func decodeRemoveDependency(a gjson.Result) (Command, error) {
	taskID, dependsOn, typ, err := decodeEdge(a)
	if err != nil {
		return nil, err
	}
	return RemoveDependencyCommand{TaskID: taskID, DependsOnTaskID: dependsOn, Type: typ}, nil
}

func decodeTagTask(a gjson.Result) (Command, error) {
	var (
		cmd TagTaskCommand
		err error
	)
	if cmd.TaskID, err = requiredString(a, "task_id"); err != nil {
		return nil, err
	}
	if cmd.LabelIDs, err = stringArray(a, "label_ids"); err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeUntagTask(a gjson.Result) (Command, error) {
	var (
		cmd UntagTaskCommand
		err error
	)
	if cmd.TaskID, err = requiredString(a, "task_id"); err != nil {
		return nil, err
	}
	if cmd.LabelID, err = requiredString(a, "label_id"); err != nil {
		return nil, err
	}
	return cmd, nil
}

type taskOnlyKind int

const (
	archive taskOnlyKind = iota
	restore
	remove
)

func decodeTaskOnly(a gjson.Result, kind taskOnlyKind) (Command, error) {
	id, err := requiredString(a, "task_id")
	if err != nil {
		return nil, err
	}
	switch kind {
	case archive:
		return ArchiveTaskCommand{TaskID: id}, nil
	case restore:
		return RestoreTaskCommand{TaskID: id}, nil
	default:
		return DeleteTaskCommand{TaskID: id}, nil
	}
}

func requiredString(a gjson.Result, field string) (string, error) {
	v := a.Get(field)
	if !v.Exists() {
		return "", Validation("%s is required", field)
	}
	if v.Type != gjson.String {
		return "", Validation("%s must be a string, got %s", field, typeName(v))
	}
	return v.Str, nil
}

func optionalString(a gjson.Result, field string) (*string, error) {
	v := a.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if v.Type != gjson.String {
		return nil, Validation("%s must be a string, got %s", field, typeName(v))
	}
	s := v.Str
	return &s, nil
}

func optionalInt(a gjson.Result, field string) (*int, error) {
	v := a.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if v.Type != gjson.Number {
		return nil, Validation("%s must be a number, got %s", field, typeName(v))
	}
	n := v.Int()
	if float64(n) != v.Num {
		return nil, Validation("%s must be an integer", field)
	}
	i := int(n)
	return &i, nil
}

func optionalTime(a gjson.Result, field string) (*time.Time, error) {
	s, err := optionalString(a, field)
	if err != nil || s == nil {
		return nil, err
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, perr := time.Parse(layout, *s); perr == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, Validation("%s must be an RFC 3339 timestamp or a date, got %q", field, *s)
}

func stringArray(a gjson.Result, field string) ([]string, error) {
	v := a.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, Validation("%s must be an array of strings, got %s", field, typeName(v))
	}
	var (
		out    []string
		badErr error
	)
	v.ForEach(func(_, item gjson.Result) bool {
		if item.Type != gjson.String {
			badErr = Validation("%s must contain only strings, got %s", field, typeName(item))
			return false
		}
		out = append(out, item.Str)
		return true
	})
	if badErr != nil {
		return nil, badErr
	}
	return out, nil
}

func typeName(v gjson.Result) string {
	switch {
	case v.IsArray():
		return "array"
	case v.IsObject():
		return "object"
	case v.Type == gjson.True || v.Type == gjson.False:
		return "boolean"
	case v.Type == gjson.Null:
		return "null"
	case v.Type == gjson.Number:
		return "number"
	case v.Type == gjson.String:
		return "string"
	}
	return fmt.Sprintf("%v", v.Type)
}
