package embedworker

import "github.com/emergent-company/emergent/internal/config"

// Config is the subset of application configuration the embedding worker
// depends on.
type Config struct {
	Queue  config.EmbedQueueConfig
	Rag    config.RagStorageConfig
}

// NewConfig projects the worker's configuration out of the global config.
func NewConfig(appCfg *config.Config) Config {
	return Config{Queue: appCfg.EmbedQueue, Rag: appCfg.RagStorage}
}
