package scheduledtasks

import "go.uber.org/fx"

// Module provides the scheduled-task registry.
var Module = fx.Module("scheduledtasks",
	fx.Provide(NewRepository, NewService, NewHandler),
	fx.Invoke(RegisterRoutes),
)
