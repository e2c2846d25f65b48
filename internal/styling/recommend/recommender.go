package recommend

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRecommendationFailed  = errors.New("RECOMMENDATION_FAILED")
	ErrRecommendationTimeout = errors.New("RECOMMENDATION_TIMEOUT")
	ErrWardrobeLookupFailed  = errors.New("WARDROBE_LOOKUP_FAILED")
)

// Dispatch is what the recommendation service receives.
type Dispatch struct {
	RequestID      string    `json:"requestId"`
	SessionID      string    `json:"sessionId"`
	UserID         string    `json:"userId,omitempty"`
	Request        Request   `json:"request"`
	WardrobeImages []string  `json:"wardrobeImages"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Receipt acknowledges an accepted dispatch.
type Receipt struct {
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"`
}

// Recommender delivers a dispatch to the outfit recommendation service.
type Recommender interface {
	Name() string
	Recommend(ctx context.Context, d Dispatch) (Receipt, error)
}

// WardrobeProvider resolves the user's wardrobe image references.
type WardrobeProvider interface {
	Images(ctx context.Context, userID string) ([]string, error)
}
