package reprocess

import "go.uber.org/fx"

// Module provides the reprocess planner used by the embedding worker.
var Module = fx.Module("reprocess",
	fx.Provide(NewPlanner),
)
