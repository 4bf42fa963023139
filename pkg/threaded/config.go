package threaded

import (
	"github.com/ajitpratap0/threaded/pkg/config"
)

// ConfigOptions translates the pool section of a loaded configuration into
// construction options. cfg is expected to have passed Validate.
func ConfigOptions(cfg *config.PoolConfig) []Option {
	opts := []Option{
		WithName(cfg.Name),
		WithMaxSlots(cfg.MaxSlots),
		WithMetrics(cfg.Metrics.Enabled),
	}
	switch cfg.Identity {
	case config.IdentityOSThread:
		opts = append(opts, WithIdentity(OSThreadIdentity))
	default:
		opts = append(opts, WithIdentity(GoroutineIdentity))
	}
	return opts
}
