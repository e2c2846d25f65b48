package main

import (
	"context"
	"time"

	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/models"
	"styling-assistant/internal/styling/dialogue"
)

type messagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, variables interface{}) error
}

// handoffNotifier publishes every settled handoff so the process instance
// waiting on the conversation can move on. Publish failures are logged; the
// session keeps its own handoff status either way.
func handoffNotifier(pub messagePublisher, name string, timeout time.Duration, log logger.Logger) func(string, dialogue.HandoffStatus) {
	log = log.WithFields(map[string]interface{}{"message": name})
	return func(sessionID string, status dialogue.HandoffStatus) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		vars := map[string]interface{}{
			"sessionId": sessionID,
			"handoff":   models.NewHandoff(status),
		}
		if err := pub.PublishMessage(ctx, name, sessionID, vars); err != nil {
			log.Warn("failed to publish handoff result", map[string]interface{}{
				"sessionId": sessionID,
				"state":     status.State,
				"error":     err,
			})
		}
	}
}
