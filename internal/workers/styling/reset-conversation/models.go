// internal/workers/styling/reset-conversation/models.go
package resetconversation

import "styling-assistant/internal/models"

const inputSchema = `{
	"type": "object",
	"required": ["sessionId"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"userId":    {"type": "string"}
	}
}`

type Input struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
}

type Output struct {
	Reset   bool                `json:"reset"`
	Session *models.SessionView `json:"session"`
}
