// Package taskdispatch implements the Task Scheduler Tick's downstream
// half: resolving a claimed task's credential, packaging an agent
// execution envelope, and enqueueing it for the agent runtime.
package taskdispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emergent-company/emergent/domain/scheduledtasks"
	"github.com/emergent-company/emergent/pkg/agentqueue"
	"github.com/emergent-company/emergent/pkg/logger"
)

// credentialResolver is the narrow interface Dispatcher needs from
// CredentialResolver, kept separate so tests can substitute a fake without
// a live database.
type credentialResolver interface {
	Resolve(ctx context.Context, apiKeyID string) (string, error)
}

// Dispatcher implements schedulertick.Dispatcher (§4.H).
type Dispatcher struct {
	credentials credentialResolver
	queue       agentqueue.Client
	logs        *scheduledtasks.Repository
	log         *slog.Logger
}

// NewDispatcher creates a new task dispatcher.
func NewDispatcher(credentials *CredentialResolver, queue agentqueue.Client, logs *scheduledtasks.Repository, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		credentials: credentials,
		queue:       queue,
		logs:        logs,
		log:         log.With(logger.Scope("taskdispatch")),
	}
}

// Dispatch resolves the task's credential, enqueues the agent execution
// envelope, and records the outcome as a running or failure log entry.
func (d *Dispatcher) Dispatch(ctx context.Context, task scheduledtasks.Task, dueAt time.Time) error {
	executionID := fmt.Sprintf("scheduled-task-%s-%s", task.TaskID, dueAt.UTC().Format("20060102150405"))

	apiKey, err := d.credentials.Resolve(ctx, task.APIKeyID)
	if err != nil {
		d.log.WarnContext(ctx, "credential unavailable, skipping dispatch",
			slog.String("taskId", task.TaskID), logger.Error(err))
		return d.recordFailure(ctx, task, executionID, err)
	}

	env := buildEnvelope(task, apiKey, executionID, dueAt)

	if err := d.queue.Enqueue(ctx, env); err != nil {
		d.log.ErrorContext(ctx, "failed to enqueue agent envelope",
			slog.String("taskId", task.TaskID), logger.Error(err))
		// Claim is not released: the next tick retries once lastCheckedAt
		// has advanced far enough for the cron arithmetic to surface a new
		// due instance.
		return d.recordFailure(ctx, task, executionID, err)
	}

	entry := scheduledtasks.LogEntry{
		ExecutionID: executionID,
		ExecutedAt:  time.Now().UTC(),
		Status:      scheduledtasks.LogStatusRunning,
		StartTime:   &dueAt,
	}
	if err := d.logs.AppendOrUpdateLogEntry(ctx, task.UserID, task.TaskID, entry); err != nil {
		return fmt.Errorf("failed to record running log entry: %w", err)
	}

	// The run has actually reached the agent queue; advance lastRunAt now,
	// not at bare claim time, so a failed enqueue never falsely advances it.
	if err := d.logs.MarkRunStarted(ctx, task.UserID, task.TaskID, time.Now().UTC()); err != nil {
		d.log.WarnContext(ctx, "failed to record lastRunAt", slog.String("taskId", task.TaskID), logger.Error(err))
	}
	return nil
}

// buildEnvelope packages the §4.H agent execution request.
func buildEnvelope(task scheduledtasks.Task, apiKey, executionID string, dueAt time.Time) agentqueue.Envelope {
	return agentqueue.Envelope{
		Source: "scheduled-task",
		TaskData: agentqueue.TaskEnvelope{
			UserID:         task.UserID,
			TaskID:         task.TaskID,
			TaskName:       task.TaskName,
			TaskType:       string(task.TaskType),
			APIKey:         apiKey,
			Source:         "scheduled-task",
			ExecutionID:    executionID,
			ScheduledForAt: dueAt.UTC().Format(time.RFC3339),
		},
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, task scheduledtasks.Task, executionID string, cause error) error {
	entry := scheduledtasks.LogEntry{
		ExecutionID: executionID,
		ExecutedAt:  time.Now().UTC(),
		Status:      scheduledtasks.LogStatusFailure,
		Error:       cause.Error(),
	}
	if err := d.logs.AppendOrUpdateLogEntry(ctx, task.UserID, task.TaskID, entry); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to record failure log entry: %w", err))
	}
	return cause
}
