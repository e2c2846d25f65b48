package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("standard error in chain", func(t *testing.T) {
		wrapped := fmt.Errorf("select: %w", Wrap(ErrCodeInvalidSelection, "Selection is not part of the taxonomy", stderrors.New("INVALID_SELECTION: weather=snowstorm")))
		got := Normalize(wrapped)
		assert.Equal(t, ErrCodeInvalidSelection, got.Code)
		assert.Contains(t, got.Details, "snowstorm")
	})

	t.Run("plain error", func(t *testing.T) {
		got := Normalize(stderrors.New("kaboom"))
		assert.Equal(t, ErrorCode("INTERNAL_ERROR"), got.Code)
		assert.Equal(t, "kaboom", got.Details)
		assert.False(t, got.Retryable)
	})
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"retryable handoff", Wrap(ErrCodeRecommendationFailed, "Outfit recommendation service error", stderrors.New("503")), "RECOMMENDATION_FAILED", 3},
		{"timeout", Wrap(ErrCodeRecommendationTimeout, "Outfit recommendation service timeout", stderrors.New("RECOMMENDATION_TIMEOUT")), "RECOMMENDATION_TIMEOUT", 2},
		{"not ready", NewTaxonomyNotReadyError("redis down"), "TAXONOMY_NOT_READY", 2},
		{"business", Wrap(ErrCodeInvalidSelection, "Selection is not part of the taxonomy", stderrors.New("INVALID_SELECTION: fit_preference=baggy")), "INVALID_SELECTION", 0},
		{"unmapped", &StandardError{Code: "CUSTOM", Retryable: true}, "CUSTOM", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, b.Code)
			assert.Equal(t, tt.wantRetries, b.Retries)

			vars := b.ToErrorVariables()
			assert.Equal(t, tt.wantCode, vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "TAXONOMY", GetErrorCategory(ErrCodeTaxonomyNotReady))
	assert.Equal(t, "SESSION", GetErrorCategory(ErrCodeSessionNotFound))
	assert.Equal(t, "HANDOFF", GetErrorCategory(ErrCodeWardrobeLookupFailed))
	assert.Equal(t, "HANDOFF", GetErrorCategory(ErrCodeRequestIncomplete))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidSelection))
	assert.Equal(t, "OTHER", GetErrorCategory("SOMETHING"))
}

func TestStandardError_Message(t *testing.T) {
	err := Wrap(ErrCodeInvalidOutfitCount, "Outfit count out of range", stderrors.New("INVALID_OUTFIT_COUNT: 9"))
	require.Error(t, err)
	assert.Equal(t, "StandardError[INVALID_OUTFIT_COUNT]: Outfit count out of range", err.Error())
	assert.True(t, IsRetryableErrorCode(ErrCodeRecommendationFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidOutfitCount))
}

func TestWrap(t *testing.T) {
	busy := Wrap(ErrCodeRecommendationBusy, "Recommendation already in flight", stderrors.New("RECOMMENDATION_IN_FLIGHT"))
	assert.True(t, busy.Retryable)
	assert.Equal(t, "RECOMMENDATION_IN_FLIGHT", busy.Details)
	assert.Equal(t, "HANDOFF", GetErrorCategory(busy.Code))

	done := Wrap(ErrCodeSessionComplete, "Conversation already complete", stderrors.New("SESSION_COMPLETE"))
	assert.False(t, done.Retryable)
	assert.Equal(t, 0, ConvertToBPMNError(done).Retries)
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := stderrors.New("SESSION_INCOMPLETE")
	err := fmt.Errorf("retry: %w", Wrap(ErrCodeSessionIncomplete, "not yet", cause))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeSessionIncomplete, Normalize(err).Code)
}
