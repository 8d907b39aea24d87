// Package taskcallback implements the Task Callback Sink (§4.I): the two
// entry points the agent runtime calls back into once it finishes
// executing a dispatched scheduled task.
package taskcallback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/emergent-company/emergent/domain/email"
	"github.com/emergent-company/emergent/domain/scheduledtasks"
	"github.com/emergent-company/emergent/internal/config"
	"github.com/emergent-company/emergent/internal/storage"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Sink handles onSuccess/onFailure callbacks.
type Sink struct {
	repo    *scheduledtasks.Repository
	storage *storage.Service
	mailer  email.Sender
	cfg     config.SchedulerTaskConfig
	log     *slog.Logger
}

// NewSink creates a new callback sink.
func NewSink(repo *scheduledtasks.Repository, storageSvc *storage.Service, mailer email.Sender, appCfg *config.Config, log *slog.Logger) *Sink {
	return &Sink{
		repo:    repo,
		storage: storageSvc,
		mailer:  mailer,
		cfg:     appCfg.SchedulerTask,
		log:     log.With(logger.Scope("taskcallback")),
	}
}

// OnSuccess merges a success log entry, archives the result blob, clears
// claim markers, and notifies if requested.
func (s *Sink) OnSuccess(ctx context.Context, req SuccessRequest) error {
	event := resolveSessionID(req.Event)

	var detailsKey *string
	if req.Result != nil {
		key, err := s.archiveResult(ctx, event, req.Result)
		if err != nil {
			s.log.ErrorContext(ctx, "failed to archive task result", logger.Error(err), slog.String("taskId", event.TaskID))
		} else {
			detailsKey = &key
		}
	}

	entry := scheduledtasks.LogEntry{
		ExecutionID: event.SessionID,
		ExecutedAt:  time.Now().UTC(),
		Status:      scheduledtasks.LogStatusSuccess,
		DetailsKey:  detailsKey,
	}
	if err := s.repo.AppendOrUpdateLogEntry(ctx, event.UserID, event.TaskID, entry); err != nil {
		return fmt.Errorf("failed to record success log entry: %w", err)
	}
	if err := s.repo.ClearClaim(ctx, event.UserID, event.TaskID); err != nil {
		return fmt.Errorf("failed to clear task claim: %w", err)
	}

	task, err := s.repo.Get(ctx, event.UserID, event.TaskID)
	if err == nil && task.Notifications.NotifyOnCompletion {
		s.notify(ctx, task.Notifications.NotifyEmail, event.TaskID, true, "")
	}
	return nil
}

// OnFailure merges a failure log entry, clears claim markers so retry can
// occur, and notifies if requested.
func (s *Sink) OnFailure(ctx context.Context, req FailureRequest) error {
	event := resolveSessionID(req.Event)

	entry := scheduledtasks.LogEntry{
		ExecutionID: event.SessionID,
		ExecutedAt:  time.Now().UTC(),
		Status:      scheduledtasks.LogStatusFailure,
		Error:       req.Error,
	}
	if err := s.repo.AppendOrUpdateLogEntry(ctx, event.UserID, event.TaskID, entry); err != nil {
		return fmt.Errorf("failed to record failure log entry: %w", err)
	}
	if err := s.repo.ClearClaim(ctx, event.UserID, event.TaskID); err != nil {
		return fmt.Errorf("failed to clear task claim: %w", err)
	}

	task, err := s.repo.Get(ctx, event.UserID, event.TaskID)
	if err == nil && task.Notifications.NotifyOnFailure {
		s.notify(ctx, task.Notifications.NotifyEmail, event.TaskID, false, req.Error)
	}
	return nil
}

func (s *Sink) archiveResult(ctx context.Context, event InputEvent, result any) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task result: %w", err)
	}
	key := fmt.Sprintf("scheduled-tasks/%s/%s/result.json", event.TaskID, event.SessionID)
	if err := s.storage.PutObjectBytes(ctx, s.cfg.LogsBucket, key, data, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Sink) notify(ctx context.Context, to, taskID string, success bool, errMsg string) {
	if to == "" || s.mailer == nil {
		return
	}
	subject := fmt.Sprintf("Scheduled task %s completed", taskID)
	body := fmt.Sprintf("Task %s completed successfully.", taskID)
	if !success {
		subject = fmt.Sprintf("Scheduled task %s failed", taskID)
		body = fmt.Sprintf("Task %s failed: %s", taskID, errMsg)
	}
	if _, err := s.mailer.Send(ctx, email.SendOptions{To: to, Subject: subject, Text: body}); err != nil {
		s.log.ErrorContext(ctx, "failed to send task notification", logger.Error(err), slog.String("taskId", taskID))
	}
}

// resolveSessionID reconstructs a missing sessionId from the taskId and
// the current timestamp, best-effort per §4.I.
func resolveSessionID(event InputEvent) InputEvent {
	if event.SessionID == "" {
		event.SessionID = fmt.Sprintf("scheduled-task-%s-%s", event.TaskID, time.Now().UTC().Format("20060102150405"))
	}
	return event
}
