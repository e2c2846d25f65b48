// internal/workers/styling/retry-recommendation/config.go
package retryrecommendation

import (
	"time"

	"styling-assistant/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// AwaitResult holds the job until the handoff reports back or Timeout
	// expires, whichever comes first.
	AwaitResult bool
}

func LoadConfig(wc config.WorkerConfig) *Config {
	cfg := &Config{Timeout: 60 * time.Second, AwaitResult: true}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}
