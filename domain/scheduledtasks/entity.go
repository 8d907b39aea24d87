package scheduledtasks

import (
	"time"

	"github.com/uptrace/bun"
)

// Task is one scheduled-task definition, keyed by (user_id, task_id): a
// cron-driven execution, not a human-in-the-loop approval item.
type Task struct {
	bun.BaseModel `bun:"table:kb.scheduled_tasks,alias:st"`

	UserID          string               `bun:"user_id,pk" json:"userId"`
	TaskID          string               `bun:"task_id,pk" json:"taskId"`
	TaskName        string               `bun:"task_name,notnull" json:"taskName"`
	CronExpression  string               `bun:"cron_expression,notnull" json:"cronExpression"`
	TimeZone        string               `bun:"time_zone,notnull,default:'UTC'" json:"timeZone"`
	DateRange       DateRange            `bun:"date_range,type:jsonb" json:"dateRange"`
	Active          bool                 `bun:"active,notnull,default:true" json:"active"`
	CreatedAt       time.Time            `bun:"created_at,notnull,default:now()" json:"createdAt"`
	LastRunAt       *time.Time           `bun:"last_run_at" json:"lastRunAt,omitempty"`
	LastCheckedAt   *time.Time           `bun:"last_checked_at" json:"lastCheckedAt,omitempty"`
	LastCheckRunID  *string              `bun:"last_check_run_id" json:"lastCheckRunId,omitempty"`
	Logs            []LogEntry           `bun:"logs,type:jsonb" json:"logs"`
	APIKeyID        string               `bun:"api_key_id,notnull" json:"apiKeyId"`
	ObjectInfo      ObjectInfo           `bun:"object_info,type:jsonb" json:"objectInfo,omitempty"`
	TaskType        TaskType             `bun:"task_type,notnull" json:"taskType"`
	Notifications   NotificationOptions  `bun:"notifications,type:jsonb" json:"notifications"`
}
