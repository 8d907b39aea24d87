package schedulertick

import (
	"context"

	"go.uber.org/fx"

	"github.com/emergent-company/emergent/domain/scheduledtasks"
	"github.com/emergent-company/emergent/domain/scheduler"
	"github.com/emergent-company/emergent/internal/config"
)

// Module provides the scheduler tick and drives it off the pre-existing
// generic domain/scheduler.Scheduler the same way it already drives the
// maintenance tasks in domain/scheduler/tasks.go.
var Module = fx.Module("schedulertick",
	fx.Provide(NewConfig, NewTick),
	fx.Invoke(registerTick),
)

func registerTick(lc fx.Lifecycle, sched *scheduler.Scheduler, tick *Tick, cfg *config.Config) error {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sched.AddIntervalTask("scheduled-task-tick", cfg.SchedulerTask.TickInterval, tick.Run)
		},
		OnStop: func(ctx context.Context) error {
			sched.RemoveTask("scheduled-task-tick")
			return nil
		},
	})
	return nil
}
