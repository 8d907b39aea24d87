package scheduledtasks

import "time"

// TaskType names what kind of agent payload a scheduled task dispatches.
type TaskType string

const (
	TaskTypeAssistant TaskType = "assistant"
	TaskTypeActionSet TaskType = "actionSet"
	TaskTypeAPITool   TaskType = "apiTool"
)

// LogStatus is the outcome recorded for one execution of a task.
type LogStatus string

const (
	LogStatusRunning LogStatus = "running"
	LogStatusSuccess LogStatus = "success"
	LogStatusFailure LogStatus = "failure"
)

// DateRange bounds when a task's cron schedule is active. Either bound may
// be date-only (interpreted at the task's local day boundary) or a full
// datetime; both are normalized to UTC before comparison against now.
type DateRange struct {
	StartDate *string `json:"startDate,omitempty"`
	EndDate   *string `json:"endDate,omitempty"`
}

// ObjectInfo carries opaque context about what the task operates on
// (e.g. which assistant or action set), passed through unexamined to the
// agent queue envelope.
type ObjectInfo map[string]any

// LogEntry is one execution record in a task's log list, held inline as
// metadata with the bulky result detail offloaded to object storage.
type LogEntry struct {
	ExecutionID string     `json:"executionId"`
	ExecutedAt  time.Time  `json:"executedAt"`
	Status      LogStatus  `json:"status"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	DetailsKey  *string    `json:"detailsKey,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// NotificationOptions controls optional email notification on completion.
type NotificationOptions struct {
	NotifyOnCompletion bool   `json:"notifyOnCompletion"`
	NotifyOnFailure    bool   `json:"notifyOnFailure"`
	NotifyEmail        string `json:"notifyEmail,omitempty"`
}
