package schedulertick

import "github.com/emergent-company/emergent/internal/config"

// Config is the subset of SchedulerTaskConfig the tick evaluator needs,
// pulled out of internal/config.Config so NewTick can take it as a single
// fx-providable value instead of bare strings/ints that would collide with
// other modules' own string/int providers.
type Config struct {
	DefaultTimeZone string
	BacklogCap      int
	BacklogKeep     int
}

// NewConfig derives the tick Config from the application config.
func NewConfig(appCfg *config.Config) Config {
	return Config{
		DefaultTimeZone: appCfg.SchedulerTask.DefaultTimeZone,
		BacklogCap:      appCfg.SchedulerTask.BacklogCap,
		BacklogKeep:     appCfg.SchedulerTask.BacklogKeep,
	}
}
