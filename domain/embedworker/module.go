package embedworker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"
)

// Module provides the embedding worker and starts/stops its consume loop
// with the application lifecycle.
var Module = fx.Module("embedworker",
	fx.Provide(NewConfig, NewSQSClient, NewWorker),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, w *Worker) {
	hup := make(chan os.Signal, 1)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			signal.Notify(hup, syscall.SIGHUP)
			go func() {
				for range hup {
					w.planner.ResetSeen()
				}
			}()
			w.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			signal.Stop(hup)
			close(hup)
			w.Stop()
			return nil
		},
	})
}
