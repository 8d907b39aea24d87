package taskdispatch

import (
	"go.uber.org/fx"

	"github.com/emergent-company/emergent/domain/schedulertick"
)

// Module provides the task dispatcher and binds it to schedulertick's
// narrow Dispatcher interface.
var Module = fx.Module("taskdispatch",
	fx.Provide(
		NewCredentialResolver,
		NewDispatcher,
		func(d *Dispatcher) schedulertick.Dispatcher { return d },
	),
)
