package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"styling-assistant/internal/common/logger"
	"styling-assistant/internal/models"
	"styling-assistant/internal/styling/dialogue"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishMessage(ctx context.Context, name, correlationKey string, variables interface{}) error {
	args := m.Called(ctx, name, correlationKey, variables)
	return args.Error(0)
}

func withDeadline(ctx context.Context) bool {
	_, ok := ctx.Deadline()
	return ok
}

func TestHandoffNotifier(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishMessage",
		mock.MatchedBy(withDeadline),
		"styling-recommendation-settled",
		"conv-1",
		map[string]interface{}{
			"sessionId": "conv-1",
			"handoff":   models.Handoff{State: "accepted", Attempts: 1, ReferenceID: "rec-1"},
		},
	).Return(nil).Once()

	notify := handoffNotifier(pub, "styling-recommendation-settled", time.Second, logger.NewTestLogger(t))
	notify("conv-1", dialogue.HandoffStatus{State: dialogue.HandoffAccepted, Attempts: 1, ReferenceID: "rec-1"})

	pub.AssertExpectations(t)
}

func TestHandoffNotifier_PublishFailureIsSwallowed(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishMessage", mock.Anything, mock.Anything, "conv-2", mock.Anything).
		Return(errors.New("ZEEBE_UNAVAILABLE")).Once()

	notify := handoffNotifier(pub, "styling-recommendation-settled", time.Second, logger.NewTestLogger(t))
	assert.NotPanics(t, func() {
		notify("conv-2", dialogue.HandoffStatus{State: dialogue.HandoffFailed, Attempts: 1, Error: "boom"})
	})

	pub.AssertExpectations(t)
}
