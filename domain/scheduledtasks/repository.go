package scheduledtasks

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/emergent-company/emergent/internal/database"
	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/cas"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Repository handles database operations for scheduled tasks.
type Repository struct {
	db  *bun.DB
	log *slog.Logger
}

// NewRepository creates a new scheduled-tasks repository.
func NewRepository(db *bun.DB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("scheduledtasks.repo"))}
}

// EnsureSchema idempotently creates the scheduled_tasks table.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kb.scheduled_tasks (
			user_id            text NOT NULL,
			task_id            text NOT NULL,
			task_name          text NOT NULL,
			cron_expression    text NOT NULL,
			time_zone          text NOT NULL DEFAULT 'UTC',
			date_range         jsonb NOT NULL DEFAULT '{}'::jsonb,
			active             boolean NOT NULL DEFAULT true,
			created_at         timestamptz NOT NULL DEFAULT now(),
			last_run_at        timestamptz,
			last_checked_at    timestamptz,
			last_check_run_id  text,
			logs               jsonb NOT NULL DEFAULT '[]'::jsonb,
			api_key_id         text NOT NULL,
			object_info        jsonb,
			task_type          text NOT NULL,
			notifications      jsonb NOT NULL DEFAULT '{}'::jsonb,
			PRIMARY KEY (user_id, task_id)
		)
	`)
	if err != nil {
		return apperror.NewInternal("failed to ensure scheduled_tasks schema", err)
	}
	_, err = r.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS scheduled_tasks_active_idx
		ON kb.scheduled_tasks (active) WHERE active
	`)
	if err != nil {
		return apperror.NewInternal("failed to ensure scheduled_tasks index", err)
	}
	return nil
}

// ListActive returns every task with active = true, the scheduler tick's
// per-cycle scan target.
func (r *Repository) ListActive(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := r.db.NewSelect().Model(&tasks).Where("active = true").Scan(ctx)
	if err != nil {
		return nil, apperror.NewInternal("failed to list active scheduled tasks", err)
	}
	return tasks, nil
}

// Get retrieves a task by its composite key.
func (r *Repository) Get(ctx context.Context, userID, taskID string) (*Task, error) {
	task := new(Task)
	err := r.db.NewSelect().Model(task).
		Where("user_id = ?", userID).
		Where("task_id = ?", taskID).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, apperror.NewNotFound("scheduled task", taskID)
	}
	if err != nil {
		return nil, apperror.NewInternal("failed to get scheduled task", err)
	}
	return task, nil
}

// Put creates or replaces a task definition.
func (r *Repository) Put(ctx context.Context, task *Task) error {
	_, err := r.db.NewInsert().
		Model(task).
		On("CONFLICT (user_id, task_id) DO UPDATE").
		Set("task_name = EXCLUDED.task_name").
		Set("cron_expression = EXCLUDED.cron_expression").
		Set("time_zone = EXCLUDED.time_zone").
		Set("date_range = EXCLUDED.date_range").
		Set("active = EXCLUDED.active").
		Set("api_key_id = EXCLUDED.api_key_id").
		Set("object_info = EXCLUDED.object_info").
		Set("task_type = EXCLUDED.task_type").
		Set("notifications = EXCLUDED.notifications").
		Exec(ctx)
	if err != nil {
		return apperror.NewInternal("failed to put scheduled task", err)
	}
	return nil
}

// ClaimDueInstance attempts the atomic claim described in §4.G step 6: it
// succeeds only if the task has never been checked, or was last checked
// before dueAt. runID identifies the winning tick for observability.
func (r *Repository) ClaimDueInstance(ctx context.Context, userID, taskID string, nowUTC time.Time, dueAt time.Time, runID string) (bool, error) {
	applied, err := cas.Apply(ctx, r.db, cas.Update{
		Table:     "kb.scheduled_tasks",
		PKColumn:  "user_id",
		PKValue:   userID,
		AndEquals: map[string]any{"task_id": taskID},
		Set: map[string]any{
			"last_checked_at":   nowUTC,
			"last_check_run_id": runID,
		},
		Predicate:     "last_checked_at IS NULL OR last_checked_at < ?",
		PredicateArgs: []any{dueAt},
	})
	if err != nil {
		return false, apperror.NewInternal("failed to claim due task instance", err)
	}
	return applied, nil
}

// MarkRunStarted records that a dispatch attempt actually reached the agent
// queue, called by the task dispatcher's success path once the envelope is
// enqueued. The claim markers are left untouched here: they are only
// cleared by the task callback sink once the run reaches a terminal state.
func (r *Repository) MarkRunStarted(ctx context.Context, userID, taskID string, runAt time.Time) error {
	_, err := cas.Apply(ctx, r.db, cas.Update{
		Table:     "kb.scheduled_tasks",
		PKColumn:  "user_id",
		PKValue:   userID,
		AndEquals: map[string]any{"task_id": taskID},
		Set: map[string]any{
			"last_run_at": runAt,
		},
	})
	if err != nil {
		return apperror.NewInternal("failed to mark task run started", err)
	}
	return nil
}

// ClearClaim resets the claim markers so the task is eligible again on its
// next cron fire, called by the task callback sink on completion.
func (r *Repository) ClearClaim(ctx context.Context, userID, taskID string) error {
	_, err := cas.Apply(ctx, r.db, cas.Update{
		Table:     "kb.scheduled_tasks",
		PKColumn:  "user_id",
		PKValue:   userID,
		AndEquals: map[string]any{"task_id": taskID},
		Set: map[string]any{
			"last_checked_at":   nil,
			"last_check_run_id": nil,
		},
	})
	if err != nil {
		return apperror.NewInternal("failed to clear task claim", err)
	}
	return nil
}

// AppendOrUpdateLogEntry merges entry into the task's log list in place:
// when an entry with the same ExecutionID already exists its fields are
// merged (preserving StartTime if the new entry doesn't set one),
// otherwise the entry is inserted at the head. This always runs inside a
// row-locked read-modify-write since the log list is a jsonb array with
// no natural per-element CAS predicate.
func (r *Repository) AppendOrUpdateLogEntry(ctx context.Context, userID, taskID string, entry LogEntry) error {
	tx, err := database.BeginSafeTx(ctx, r.db)
	if err != nil {
		return apperror.NewInternal("failed to begin log update transaction", err)
	}
	defer tx.Rollback()

	task := new(Task)
	if err := tx.NewSelect().Model(task).
		Where("user_id = ?", userID).Where("task_id = ?", taskID).
		For("UPDATE").Scan(ctx); err != nil {
		if err == sql.ErrNoRows {
			return apperror.NewNotFound("scheduled task", taskID)
		}
		return apperror.NewInternal("failed to lock scheduled task", err)
	}

	merged := false
	for i, existing := range task.Logs {
		if existing.ExecutionID == entry.ExecutionID {
			if entry.StartTime == nil {
				entry.StartTime = existing.StartTime
			}
			task.Logs[i] = entry
			merged = true
			break
		}
	}
	if !merged {
		task.Logs = append([]LogEntry{entry}, task.Logs...)
	}

	if _, err := tx.NewUpdate().Model(task).
		Column("logs").
		Where("user_id = ?", userID).Where("task_id = ?", taskID).
		Exec(ctx); err != nil {
		return apperror.NewInternal("failed to persist task log entry", err)
	}

	return tx.Commit()
}
