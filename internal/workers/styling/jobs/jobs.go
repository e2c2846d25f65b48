// Package jobs holds the plumbing shared by the styling job workers: input
// decoding, engine error translation and session snapshots.
package jobs

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"styling-assistant/internal/common/errors"
	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/common/validation"
	"styling-assistant/internal/models"
	"styling-assistant/internal/styling/dialogue"
	"styling-assistant/internal/styling/recommend"
	"styling-assistant/internal/styling/taxonomy"
	"styling-assistant/internal/styling/transcript"
)

// ParseInput validates the job variables against schema and decodes them
// into out.
func ParseInput(job entities.Job, schema string, out interface{}) error {
	raw := []byte(job.Variables)
	result, err := validation.ValidateInput(schema, raw)
	if err != nil {
		return errors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		return errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("decode variables: %v", err))
	}
	return nil
}

var codes = []struct {
	sentinel error
	code     errors.ErrorCode
	message  string
}{
	{dialogue.ErrTaxonomyNotReady, errors.ErrCodeTaxonomyNotReady, "Attribute taxonomy is not loaded"},
	{taxonomy.ErrInvalidTaxonomy, errors.ErrCodeTaxonomyInvalid, "Attribute taxonomy document is invalid"},
	{dialogue.ErrInvalidSelection, errors.ErrCodeInvalidSelection, "Selection is not part of the taxonomy"},
	{dialogue.ErrInvalidOutfitCount, errors.ErrCodeInvalidOutfitCount, "Outfit count out of range"},
	{recommend.ErrInvalidOutfitCount, errors.ErrCodeInvalidOutfitCount, "Outfit count out of range"},
	{dialogue.ErrSessionNotFound, errors.ErrCodeSessionNotFound, "Conversation session not found"},
	{dialogue.ErrSessionLimit, errors.ErrCodeSessionLimit, "Too many active conversations"},
	{dialogue.ErrNotComplete, errors.ErrCodeSessionIncomplete, "Conversation has not collected every preference yet"},
	{dialogue.ErrConversationComplete, errors.ErrCodeSessionComplete, "Conversation is already complete"},
	{dialogue.ErrHandoffInFlight, errors.ErrCodeRecommendationBusy, "A recommendation request is already in flight"},
	{recommend.ErrIncompleteRequest, errors.ErrCodeRequestIncomplete, "Recommendation request has invalid slot values"},
	{recommend.ErrRecommendationTimeout, errors.ErrCodeRecommendationTimeout, "Outfit recommendation service timeout"},
	{recommend.ErrRecommendationFailed, errors.ErrCodeRecommendationFailed, "Outfit recommendation service error"},
}

// MapError turns an engine error into a StandardError. Errors that already
// carry a code, and unknown errors, pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var std *errors.StandardError
	if stderrors.As(err, &std) {
		return err
	}
	for _, c := range codes {
		if stderrors.Is(err, c.sentinel) {
			return errors.Wrap(c.code, c.message, err)
		}
	}
	return err
}

// View snapshots s and attaches the turns appended by the current job.
func View(s *dialogue.Session, turns []transcript.Turn) (*models.SessionView, error) {
	v, err := s.Snapshot()
	if err != nil {
		return nil, MapError(err)
	}
	return models.NewSessionView(v, turns), nil
}

// Complete sends the job's output variables back to the broker.
func Complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return err
	}
	return nil
}
