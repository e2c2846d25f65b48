// internal/common/errors/errors.go
package errors

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeTaxonomyNotReady ErrorCode = "TAXONOMY_NOT_READY"
	ErrCodeTaxonomyInvalid  ErrorCode = "TAXONOMY_INVALID"

	ErrCodeInvalidSelection   ErrorCode = "INVALID_SELECTION"
	ErrCodeInvalidOutfitCount ErrorCode = "INVALID_OUTFIT_COUNT"
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionLimit       ErrorCode = "SESSION_LIMIT_REACHED"
	ErrCodeSessionIncomplete  ErrorCode = "SESSION_INCOMPLETE"
	ErrCodeSessionComplete    ErrorCode = "SESSION_COMPLETE"

	ErrCodeRequestIncomplete     ErrorCode = "REQUEST_INCOMPLETE"
	ErrCodeRecommendationFailed  ErrorCode = "RECOMMENDATION_FAILED"
	ErrCodeRecommendationTimeout ErrorCode = "RECOMMENDATION_TIMEOUT"
	ErrCodeWardrobeLookupFailed  ErrorCode = "WARDROBE_LOOKUP_FAILED"
	ErrCodeRecommendationBusy    ErrorCode = "RECOMMENDATION_IN_FLIGHT"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// StandardError is the error shape workers report back to the process engine.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.cause }

// BPMNError is what gets thrown into the workflow as an error event.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewTaxonomyNotReadyError(details string) *StandardError {
	return newError(ErrCodeTaxonomyNotReady, "Attribute taxonomy is not loaded", details, true)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

// Wrap attaches a code to an engine error. Retryability follows GetRetryCount.
func Wrap(code ErrorCode, message string, err error) *StandardError {
	std := newError(code, message, err.Error(), IsRetryableErrorCode(code))
	std.cause = err
	return std
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeTaxonomyNotReady:      "TAXONOMY_NOT_READY",
	ErrCodeTaxonomyInvalid:       "TAXONOMY_INVALID",
	ErrCodeInvalidSelection:      "INVALID_SELECTION",
	ErrCodeInvalidOutfitCount:    "INVALID_OUTFIT_COUNT",
	ErrCodeSessionNotFound:       "SESSION_NOT_FOUND",
	ErrCodeSessionLimit:          "SESSION_LIMIT_REACHED",
	ErrCodeSessionIncomplete:     "SESSION_INCOMPLETE",
	ErrCodeSessionComplete:       "SESSION_COMPLETE",
	ErrCodeRequestIncomplete:     "REQUEST_INCOMPLETE",
	ErrCodeRecommendationFailed:  "RECOMMENDATION_FAILED",
	ErrCodeRecommendationTimeout: "RECOMMENDATION_TIMEOUT",
	ErrCodeWardrobeLookupFailed:  "WARDROBE_LOOKUP_FAILED",
	ErrCodeRecommendationBusy:    "RECOMMENDATION_IN_FLIGHT",
	ErrCodeInvalidInput:          "INVALID_INPUT",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRecommendationFailed,
		ErrCodeWardrobeLookupFailed:
		return 3

	case ErrCodeRecommendationTimeout,
		ErrCodeRecommendationBusy,
		ErrCodeTaxonomyNotReady,
		ErrCodeSessionLimit:
		return 2

	default:
		return 0 // business errors
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "TAXONOMY"):
		return "TAXONOMY"
	case strings.HasPrefix(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "RECOMMENDATION") || strings.Contains(codeStr, "WARDROBE") || strings.Contains(codeStr, "REQUEST"):
		return "HANDOFF"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
