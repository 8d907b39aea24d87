package agentqueue

import (
	"go.uber.org/fx"

	"github.com/emergent-company/emergent/internal/config"
)

// Module provides the agent execution queue client.
var Module = fx.Module("agentqueue", fx.Provide(newConfig, New))

func newConfig(appCfg *config.Config) config.AgentQueueConfig {
	return appCfg.AgentQueue
}
