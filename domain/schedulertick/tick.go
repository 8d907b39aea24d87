package schedulertick

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/emergent-company/emergent/domain/scheduledtasks"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Dispatcher is the narrow interface Tick needs from the task dispatcher
// (§4.H), kept separate to avoid an import cycle between schedulertick and
// taskdispatch (the dispatcher depends on the registry too).
type Dispatcher interface {
	Dispatch(ctx context.Context, task scheduledtasks.Task, dueAt time.Time) error
}

// Tick is the Task Scheduler Tick (§4.G): on every invocation it scans
// active tasks, computes each one's earliest unclaimed due instance, and
// attempts to atomically claim and dispatch it.
type Tick struct {
	registry   *scheduledtasks.Service
	repo       *scheduledtasks.Repository
	dispatcher Dispatcher
	cfg        Config
	log        *slog.Logger
}

// NewTick creates a new scheduler tick.
func NewTick(registry *scheduledtasks.Service, repo *scheduledtasks.Repository, dispatcher Dispatcher, cfg Config, log *slog.Logger) *Tick {
	if cfg.DefaultTimeZone == "" {
		cfg.DefaultTimeZone = "UTC"
	}
	if cfg.BacklogCap <= 0 {
		cfg.BacklogCap = 1000
	}
	if cfg.BacklogKeep <= 0 {
		cfg.BacklogKeep = 100
	}
	return &Tick{
		registry:   registry,
		repo:       repo,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log.With(logger.Scope("schedulertick")),
	}
}

// Run executes one tick: a fresh runId, one now_utc shared by every task
// evaluated this cycle so their due-instance computations stay comparable.
func (t *Tick) Run(ctx context.Context) error {
	runID := uuid.New().String()
	nowUTC := time.Now().UTC()

	tasks, err := t.registry.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if err := t.evaluateTask(ctx, task, nowUTC, runID); err != nil {
			t.log.ErrorContext(ctx, "tick failed to evaluate task",
				logger.Error(err), slog.String("userId", task.UserID), slog.String("taskId", task.TaskID))
		}
	}
	return nil
}

func (t *Tick) evaluateTask(ctx context.Context, task scheduledtasks.Task, nowUTC time.Time, runID string) error {
	loc, err := time.LoadLocation(task.TimeZone)
	if err != nil {
		t.log.WarnContext(ctx, "failed to parse task time zone, falling back to default",
			slog.String("taskId", task.TaskID), slog.String("timeZone", task.TimeZone))
		loc, err = time.LoadLocation(t.cfg.DefaultTimeZone)
		if err != nil {
			loc = time.UTC
		}
	}

	if !withinDateRange(task.DateRange, nowUTC, loc) {
		return nil
	}

	base := task.CreatedAt
	if task.LastRunAt != nil {
		base = *task.LastRunAt
	}
	baseLocal := base.UTC().In(loc)

	schedule, err := cron.ParseStandard(task.CronExpression)
	if err != nil {
		t.log.WarnContext(ctx, "invalid cron expression, skipping task",
			slog.String("taskId", task.TaskID), slog.String("cron", task.CronExpression))
		return nil
	}

	due := enumerateDue(schedule, baseLocal, nowUTC, task.LastCheckedAt, t.cfg.BacklogCap, t.cfg.BacklogKeep, t.log)
	if len(due) == 0 {
		return nil
	}

	// Earliest due instance wins; later ones wait for the next tick. This
	// is the intentional back-pressure that prevents burst fan-out.
	dueAt := due[0]

	claimed, err := t.repo.ClaimDueInstance(ctx, task.UserID, task.TaskID, nowUTC, dueAt, runID)
	if err != nil {
		claimOutcomes.WithLabelValues("error").Inc()
		return err
	}
	if !claimed {
		// Another tick won the race for this instance; this is expected
		// under concurrent ticks and not an error condition.
		claimOutcomes.WithLabelValues("lost_race").Inc()
		t.log.DebugContext(ctx, "lost claim race for due instance",
			slog.String("taskId", task.TaskID), slog.Time("dueAt", dueAt))
		return nil
	}
	claimOutcomes.WithLabelValues("claimed").Inc()

	return t.dispatcher.Dispatch(ctx, task, dueAt)
}

// enumerateDue walks the cron schedule forward from base, collecting every
// fire time strictly after lastCheckedAt (or all of them if unset) and at
// or before nowUTC. A pathological backlog beyond backlogCap is trimmed to
// the backlogKeep most recent instances with a warning.
func enumerateDue(schedule cron.Schedule, base time.Time, nowUTC time.Time, lastCheckedAt *time.Time, backlogCap, backlogKeep int, log *slog.Logger) []time.Time {
	var due []time.Time
	trimmed := false
	cursor := base
	for {
		next := schedule.Next(cursor)
		if next.IsZero() || next.UTC().After(nowUTC) {
			break
		}
		if lastCheckedAt == nil || next.UTC().After(*lastCheckedAt) {
			due = append(due, next.UTC())
		}
		cursor = next
		if len(due) > backlogCap {
			trimmed = true
			due = due[len(due)-backlogKeep:]
		}
	}
	if trimmed {
		log.Warn("due-instance backlog exceeded safety cap, trimming", slog.Int("cap", backlogCap))
		if len(due) > backlogKeep {
			due = due[len(due)-backlogKeep:]
		}
	}
	return due
}

// withinDateRange reports whether nowUTC falls inside the task's active
// date range. A date-only bound is interpreted at the user-local day
// boundary (start-of-day for startDate, end-of-day for endDate); a full
// datetime bound is parsed as-is and coerced to UTC.
func withinDateRange(dr scheduledtasks.DateRange, nowUTC time.Time, loc *time.Location) bool {
	if dr.StartDate != nil {
		start, ok := parseBound(*dr.StartDate, loc, false)
		if ok && nowUTC.Before(start) {
			return false
		}
	}
	if dr.EndDate != nil {
		end, ok := parseBound(*dr.EndDate, loc, true)
		if ok && nowUTC.After(end) {
			return false
		}
	}
	return true
}

// parseBound parses a date-only ("2006-01-02") or full RFC3339 bound,
// interpreting a date-only value at the user-local day boundary.
func parseBound(raw string, loc *time.Location, endOfDay bool) (time.Time, bool) {
	if d, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		if endOfDay {
			d = d.Add(24*time.Hour - time.Millisecond)
		}
		return d.UTC(), true
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}
