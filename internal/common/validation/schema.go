package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TaxonomySchema describes the attribute taxonomy document. Semantic checks
// (exact category set, default permitted) live in the taxonomy package.
const TaxonomySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["categories"],
  "properties": {
    "version": {"type": "string"},
    "categories": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "values", "sentinel"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "pattern": "^[a-z][a-z_]*$"},
          "label": {"type": "string"},
          "values": {
            "type": "array",
            "minItems": 1,
            "uniqueItems": true,
            "items": {"type": "string", "minLength": 1}
          },
          "sentinel": {"type": "string", "minLength": 1},
          "default": {"type": "string"},
          "question": {"type": "string"},
          "confirmation": {"type": "string"}
        }
      }
    }
  }
}`

var taxonomySchemaLoader = gojsonschema.NewStringLoader(TaxonomySchema)

// ValidateTaxonomy checks a raw taxonomy document against TaxonomySchema.
func ValidateTaxonomy(document []byte) (*ValidationResult, error) {
	if !json.Valid(document) {
		return nil, fmt.Errorf("taxonomy document is not valid JSON")
	}
	return ValidateDocument(taxonomySchemaLoader, gojsonschema.NewBytesLoader(document))
}

// ValidateDocument runs gojsonschema and flattens its errors.
func ValidateDocument(schema, document gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ValidateInput checks raw job variables against a JSON schema string.
func ValidateInput(schema string, document []byte) (*ValidationResult, error) {
	if !json.Valid(document) {
		return nil, fmt.Errorf("job variables are not valid JSON")
	}
	return ValidateDocument(gojsonschema.NewStringLoader(schema), gojsonschema.NewBytesLoader(document))
}
