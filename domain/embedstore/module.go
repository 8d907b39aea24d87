package embedstore

import "go.uber.org/fx"

// Module provides the vector store gateway.
var Module = fx.Module("embedstore",
	fx.Provide(NewRepository),
)
