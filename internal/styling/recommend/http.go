package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	commonhttp "styling-assistant/internal/common/http"
	"styling-assistant/internal/common/logger"
)

const recommendPath = "/api/outfits/recommendations"

// HTTPRecommender posts dispatches as JSON, retrying transient failures with
// exponential backoff.
type HTTPRecommender struct {
	client     *commonhttp.Client
	baseURL    string
	apiKey     string
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

func NewHTTPRecommender(baseURL, apiKey string, timeout time.Duration, maxRetries int, log logger.Logger) *HTTPRecommender {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPRecommender{
		client:     commonhttp.NewClient(timeout),
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		backoff:    100 * time.Millisecond,
		logger:     log.WithFields(map[string]interface{}{"transport": "http"}),
	}
}

func (r *HTTPRecommender) Name() string { return "http" }

func (r *HTTPRecommender) Recommend(ctx context.Context, d Dispatch) (Receipt, error) {
	headers := map[string]string{"X-Request-ID": d.RequestID}
	if r.apiKey != "" {
		headers["Authorization"] = "Bearer " + r.apiKey
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Receipt{}, ErrRecommendationTimeout
			}
		}

		var receipt Receipt
		lastErr = r.client.PostJSON(ctx, r.baseURL+recommendPath, headers, d, &receipt)
		if lastErr == nil {
			if receipt.Status == "" {
				receipt.Status = "accepted"
			}
			if receipt.ReferenceID == "" {
				receipt.ReferenceID = d.RequestID
			}
			return receipt, nil
		}

		if ctx.Err() != nil || errors.Is(lastErr, context.DeadlineExceeded) {
			return Receipt{}, ErrRecommendationTimeout
		}

		var statusErr *commonhttp.StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Retryable() {
			break
		}

		r.logger.Warn("recommendation attempt failed", map[string]interface{}{
			"requestId": d.RequestID,
			"attempt":   attempt + 1,
			"error":     lastErr,
		})
	}

	return Receipt{}, fmt.Errorf("%w: %v", ErrRecommendationFailed, lastErr)
}
