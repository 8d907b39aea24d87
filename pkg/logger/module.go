package logger

import "go.uber.org/fx"

// Module provides the root *slog.Logger to the fx graph.
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)
