// internal/workers/styling/reset-conversation/config.go
package resetconversation

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
