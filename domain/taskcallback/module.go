package taskcallback

import "go.uber.org/fx"

// Module provides the task callback sink and its HTTP surface.
var Module = fx.Module("taskcallback",
	fx.Provide(NewSink, NewHandler),
	fx.Invoke(RegisterRoutes),
)
