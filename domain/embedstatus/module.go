package embedstatus

import "go.uber.org/fx"

// Module provides the embedding/image status query service.
var Module = fx.Module("embedstatus",
	fx.Provide(NewService, NewHandler),
	fx.Invoke(RegisterRoutes),
)
