// internal/workers/styling/process-message/config.go
package processmessage

import (
	"time"

	"styling-assistant/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// AwaitFollowup returns the paced follow-up question in the job output
	// instead of leaving it to the pacer.
	AwaitFollowup bool
}

func LoadConfig(wc config.WorkerConfig) *Config {
	cfg := &Config{
		Timeout:       10 * time.Second,
		AwaitFollowup: true,
	}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}
