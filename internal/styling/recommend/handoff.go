package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/common/metrics"
	"styling-assistant/internal/common/observability"
)

// Handoff resolves wardrobe images and delivers one dispatch. A failed
// wardrobe lookup degrades to an empty image list.
type Handoff struct {
	recommender Recommender
	wardrobe    WardrobeProvider
	obs         *observability.Observability
	logger      logger.Logger
	timeout     time.Duration
	now         func() time.Time
}

func NewHandoff(r Recommender, w WardrobeProvider, obs *observability.Observability, log logger.Logger, timeout time.Duration) *Handoff {
	if w == nil {
		w = StaticWardrobe{}
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Handoff{
		recommender: r,
		wardrobe:    w,
		obs:         obs,
		logger:      log.WithFields(map[string]interface{}{"transport": r.Name()}),
		timeout:     timeout,
		now:         time.Now,
	}
}

// Send delivers req for the given conversation and user.
func (h *Handoff) Send(ctx context.Context, sessionID, userID string, req Request) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := h.now()

	images, err := h.wardrobe.Images(ctx, userID)
	if err != nil {
		h.logger.Warn("wardrobe lookup failed, continuing without images", map[string]interface{}{
			"sessionId": sessionID,
			"userId":    userID,
			"error":     err,
		})
		images = nil
	}
	if images == nil {
		images = []string{}
	}

	d := Dispatch{
		RequestID:      uuid.NewString(),
		SessionID:      sessionID,
		UserID:         userID,
		Request:        req,
		WardrobeImages: images,
		CreatedAt:      start.UTC(),
	}

	receipt, err := h.recommender.Recommend(ctx, d)

	status := "accepted"
	switch {
	case errors.Is(err, ErrRecommendationTimeout):
		status = "timeout"
	case err != nil:
		status = "failed"
	}
	metrics.HandoffsTotal.WithLabelValues(h.recommender.Name(), status).Inc()
	h.obs.RecordHandoff(ctx, h.recommender.Name(), time.Since(start), status)

	if err != nil {
		h.logger.Error("recommendation handoff failed", map[string]interface{}{
			"sessionId": sessionID,
			"requestId": d.RequestID,
			"error":     err,
		})
		return Receipt{}, err
	}

	h.logger.Info("recommendation handed off", map[string]interface{}{
		"sessionId":   sessionID,
		"requestId":   d.RequestID,
		"referenceId": receipt.ReferenceID,
		"images":      len(images),
		"outfitCount": req.OutfitCount,
	})
	return receipt, nil
}
