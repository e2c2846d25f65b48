// internal/workers/styling/set-outfit-count/models.go
package setoutfitcount

import "styling-assistant/internal/models"

const inputSchema = `{
	"type": "object",
	"required": ["sessionId", "outfitCount"],
	"properties": {
		"sessionId":   {"type": "string", "minLength": 1},
		"userId":      {"type": "string"},
		"outfitCount": {"type": "integer"}
	}
}`

type Input struct {
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId,omitempty"`
	OutfitCount int    `json:"outfitCount"`
}

type Output struct {
	OutfitCount int                 `json:"outfitCount"`
	Session     *models.SessionView `json:"session"`
}
