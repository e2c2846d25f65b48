// internal/workers/styling/select-option/config.go
package selectoption

import (
	"time"

	"styling-assistant/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	AwaitFollowup bool
}

func LoadConfig(wc config.WorkerConfig) *Config {
	cfg := &Config{Timeout: 10 * time.Second, AwaitFollowup: true}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}
