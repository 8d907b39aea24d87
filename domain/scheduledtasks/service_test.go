package scheduledtasks

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestService_Create_RequiresFields(t *testing.T) {
	svc := NewService(nil, slog.Default())

	_, err := svc.Create(context.Background(), CreateTaskInput{})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateTaskInput{TaskName: "t", CronExpression: "* * * * *"})
	require.Error(t, err, "missing apiKeyId should fail")
}

func TestTaskType_Constants(t *testing.T) {
	require.Equal(t, TaskType("assistant"), TaskTypeAssistant)
	require.Equal(t, TaskType("actionSet"), TaskTypeActionSet)
	require.Equal(t, TaskType("apiTool"), TaskTypeAPITool)
}

func TestLogStatus_Constants(t *testing.T) {
	require.Equal(t, LogStatus("running"), LogStatusRunning)
	require.Equal(t, LogStatus("success"), LogStatusSuccess)
	require.Equal(t, LogStatus("failure"), LogStatusFailure)
}
