// internal/workers/styling/set-outfit-count/config.go
package setoutfitcount

import (
	"time"

	"styling-assistant/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wc config.WorkerConfig) *Config {
	if wc.Timeout > 0 {
		return &Config{Timeout: config.GetDuration(wc.Timeout)}
	}
	return &Config{Timeout: 5 * time.Second}
}
