package qasummary

import "go.uber.org/fx"

// Module provides the QA-summary client. It defaults to NoopClient; a real
// LLM-backed implementation can be swapped in by providing Client from a
// different module ahead of this one in the fx graph.
var Module = fx.Module("qasummary",
	fx.Provide(func() Client { return NoopClient{} }),
)
