// internal/workers/styling/select-option/models.go
package selectoption

import "styling-assistant/internal/models"

const inputSchema = `{
	"type": "object",
	"required": ["sessionId", "category", "value"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"userId":    {"type": "string"},
		"category":  {"type": "string", "minLength": 1},
		"value":     {"type": "string", "minLength": 1}
	}
}`

type Input struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
	Category  string `json:"category"`
	Value     string `json:"value"`
}

type Output struct {
	Applied models.Option       `json:"applied"`
	Session *models.SessionView `json:"session"`
}
