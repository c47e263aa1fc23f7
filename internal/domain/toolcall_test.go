package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeToolCall(t *testing.T) {
	t.Run("create task", func(t *testing.T) {
		cmd, err := DecodeToolCall("create_task", []byte(`{
			"project_id": "p1",
			"title": "Write docs",
			"priority": "high",
			"due_date": "2026-11-01",
			"assignee_ids": ["m1", "m2"]
		}`))
		require.NoError(t, err)

		create, ok := cmd.(CreateTaskCommand)
		require.True(t, ok)
		assert.Equal(t, "p1", create.ProjectID)
		assert.Equal(t, "Write docs", create.Title)
		assert.Equal(t, PriorityHigh, create.Priority)
		require.NotNil(t, create.DueDate)
		assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), *create.DueDate)
		assert.Equal(t, []string{"m1", "m2"}, create.AssigneeIDs)
		assert.Nil(t, create.ParentTaskID)
	})

	t.Run("move task with position", func(t *testing.T) {
		cmd, err := DecodeToolCall("move_task", []byte(`{"task_id":"t1","status_id":"s2","position":3}`))
		require.NoError(t, err)

		move := cmd.(MoveTaskCommand)
		require.NotNil(t, move.Position)
		assert.Equal(t, 3, *move.Position)
		assert.Nil(t, move.ExpectedVersion)
	})

	t.Run("move task to tail", func(t *testing.T) {
		cmd, err := DecodeToolCall("move_task", []byte(`{"task_id":"t1","status_id":"s2","position":null}`))
		require.NoError(t, err)
		assert.Nil(t, cmd.(MoveTaskCommand).Position)
	})

	t.Run("update clears due date", func(t *testing.T) {
		cmd, err := DecodeToolCall("update_task", []byte(`{"task_id":"t1","due_date":null}`))
		require.NoError(t, err)
		assert.True(t, cmd.(UpdateTaskCommand).ClearDueDate)
	})

	t.Run("dependency defaults to blocks", func(t *testing.T) {
		cmd, err := DecodeToolCall("add_dependency", []byte(`{"task_id":"a","depends_on_task_id":"b"}`))
		require.NoError(t, err)
		assert.Equal(t, DependencyBlocks, cmd.(AddDependencyCommand).Type)
	})

	t.Run("task only commands", func(t *testing.T) {
		for name, want := range map[string]Command{
			"archive_task": ArchiveTaskCommand{TaskID: "t9"},
			"restore_task": RestoreTaskCommand{TaskID: "t9"},
			"delete_task":  DeleteTaskCommand{TaskID: "t9"},
		} {
			cmd, err := DecodeToolCall(name, []byte(`{"task_id":"t9"}`))
			require.NoError(t, err, name)
			assert.Equal(t, want, cmd, name)
		}
	})
}

func TestDecodeToolCallRejects(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args string
	}{
		{"unknown tool", "drop_tables", `{}`},
		{"invalid json", "move_task", `{"task_id":`},
		{"not an object", "move_task", `["t1"]`},
		{"missing field", "move_task", `{"task_id":"t1"}`},
		{"number for string", "move_task", `{"task_id":1,"status_id":"s"}`},
		{"string for number", "move_task", `{"task_id":"t","status_id":"s","position":"2"}`},
		{"fractional position", "move_task", `{"task_id":"t","status_id":"s","position":1.5}`},
		{"negative position", "move_task", `{"task_id":"t","status_id":"s","position":-1}`},
		{"array of numbers", "assign_task", `{"task_id":"t","member_ids":[1,2]}`},
		{"empty assignment", "assign_task", `{"task_id":"t","member_ids":[]}`},
		{"bad priority", "create_task", `{"project_id":"p","title":"x","priority":"asap"}`},
		{"bad date", "create_task", `{"project_id":"p","title":"x","due_date":"tomorrow"}`},
		{"bad dependency type", "add_dependency", `{"task_id":"a","depends_on_task_id":"b","type":"relates"}`},
		{"object for string", "untag_task", `{"task_id":{"id":"t"},"label_id":"l"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeToolCall(tt.tool, []byte(tt.args))
			assert.Nil(t, cmd)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCommandValidate(t *testing.T) {
	assert.ErrorIs(t, CreateStatusCommand{ProjectID: "p", Name: "x", IsDefault: true, IsCompleted: true}.Validate(), ErrValidation)
	assert.ErrorIs(t, ReorderStatusesCommand{ProjectID: "p", StatusIDs: []string{"a", "a"}}.Validate(), ErrValidation)
	assert.NoError(t, ReorderStatusesCommand{ProjectID: "p", StatusIDs: []string{"a", "b"}}.Validate())

	due := time.Now()
	assert.ErrorIs(t, UpdateTaskCommand{TaskID: "t", DueDate: &due, ClearDueDate: true}.Validate(), ErrValidation)

	empty := "  "
	assert.ErrorIs(t, UpdateStatusCommand{StatusID: "s", Name: &empty}.Validate(), ErrValidation)
}
