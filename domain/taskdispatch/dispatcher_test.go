package taskdispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emergent-company/emergent/domain/scheduledtasks"
)

func TestBuildEnvelope(t *testing.T) {
	task := scheduledtasks.Task{
		UserID:   "user-1",
		TaskID:   "task-1",
		TaskName: "daily-digest",
		TaskType: scheduledtasks.TaskTypeAssistant,
	}
	dueAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	env := buildEnvelope(task, "token-abc", "scheduled-task-task-1-20260801090000", dueAt)

	require.Equal(t, "scheduled-task", env.Source)
	require.Equal(t, "user-1", env.TaskData.UserID)
	require.Equal(t, "task-1", env.TaskData.TaskID)
	require.Equal(t, "token-abc", env.TaskData.APIKey)
	require.Equal(t, "assistant", env.TaskData.TaskType)
	require.Equal(t, "scheduled-task-task-1-20260801090000", env.TaskData.ExecutionID)
	require.Equal(t, "2026-08-01T09:00:00Z", env.TaskData.ScheduledForAt)
}

func TestExecutionID_Format(t *testing.T) {
	dueAt := time.Date(2026, 8, 1, 9, 30, 15, 0, time.UTC)
	executionID := "scheduled-task-" + "task-9" + "-" + dueAt.UTC().Format("20060102150405")
	require.Equal(t, "scheduled-task-task-9-20260801093015", executionID)
}
