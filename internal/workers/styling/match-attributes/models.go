// internal/workers/styling/match-attributes/models.go
package matchattributes

import "styling-assistant/internal/models"

const inputSchema = `{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message":  {"type": "string"},
		"category": {"type": "string"}
	}
}`

type Input struct {
	Message string `json:"message"`
	// Category narrows the result to a single category when set.
	Category string `json:"category,omitempty"`
}

type Output struct {
	IsQuestion      bool               `json:"isQuestion"`
	Candidates      []models.Candidate `json:"candidates"`
	TaxonomyVersion string             `json:"taxonomyVersion"`
}
