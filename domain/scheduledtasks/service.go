package scheduledtasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Service is the Task Registry's business logic layer, thin over
// Repository.
type Service struct {
	repo *Repository
	log  *slog.Logger
}

// NewService creates a new scheduled-tasks service.
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log.With(logger.Scope("scheduledtasks.svc"))}
}

// ListActive returns every active task definition.
func (s *Service) ListActive(ctx context.Context) ([]Task, error) {
	return s.repo.ListActive(ctx)
}

// Get retrieves a single task definition.
func (s *Service) Get(ctx context.Context, userID, taskID string) (*Task, error) {
	return s.repo.Get(ctx, userID, taskID)
}

// CreateTaskInput is the validated payload for creating a scheduled task.
type CreateTaskInput struct {
	UserID         string              `json:"-"`
	TaskName       string              `json:"taskName"`
	CronExpression string              `json:"cronExpression"`
	TimeZone       string              `json:"timeZone"`
	DateRange      DateRange           `json:"dateRange"`
	APIKeyID       string              `json:"apiKeyId"`
	ObjectInfo     ObjectInfo          `json:"objectInfo,omitempty"`
	TaskType       TaskType            `json:"taskType"`
	Notifications  NotificationOptions `json:"notifications"`
}

// Create validates and persists a new scheduled task.
func (s *Service) Create(ctx context.Context, in CreateTaskInput) (*Task, error) {
	if in.TaskName == "" || in.CronExpression == "" || in.APIKeyID == "" {
		return nil, apperror.NewBadRequest("taskName, cronExpression, and apiKeyId are required")
	}
	if in.TimeZone == "" {
		in.TimeZone = "UTC"
	}

	task := &Task{
		UserID:         in.UserID,
		TaskID:         uuid.New().String(),
		TaskName:       in.TaskName,
		CronExpression: in.CronExpression,
		TimeZone:       in.TimeZone,
		DateRange:      in.DateRange,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
		Logs:           []LogEntry{},
		APIKeyID:       in.APIKeyID,
		ObjectInfo:     in.ObjectInfo,
		TaskType:       in.TaskType,
		Notifications:  in.Notifications,
	}
	if err := s.repo.Put(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SetActive flips a task's activation flag.
func (s *Service) SetActive(ctx context.Context, userID, taskID string, active bool) (*Task, error) {
	task, err := s.repo.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	task.Active = active
	if err := s.repo.Put(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}
