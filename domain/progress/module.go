package progress

import "go.uber.org/fx"

// Module provides the progress coordinator used by the embedding worker and
// reprocess planner to track per-document child/parent status.
var Module = fx.Module("progress",
	fx.Provide(NewRepository, NewCoordinator),
)
