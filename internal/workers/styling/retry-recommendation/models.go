// internal/workers/styling/retry-recommendation/models.go
package retryrecommendation

import "styling-assistant/internal/models"

const inputSchema = `{
	"type": "object",
	"required": ["sessionId"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1}
	}
}`

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	Handoff models.Handoff      `json:"handoff"`
	Session *models.SessionView `json:"session"`
}
