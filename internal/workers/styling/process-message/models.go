// internal/workers/styling/process-message/models.go
package processmessage

import "styling-assistant/internal/models"

const inputSchema = `{
	"type": "object",
	"required": ["sessionId", "message"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"userId":    {"type": "string"},
		"message":   {"type": "string"}
	}
}`

type Input struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
	Message   string `json:"message"`
}

type Output struct {
	Path       string              `json:"path"`
	IsQuestion bool                `json:"isQuestion"`
	Candidates []models.Candidate  `json:"candidates"`
	Applied    *models.Option      `json:"applied,omitempty"`
	Session    *models.SessionView `json:"session"`
}
