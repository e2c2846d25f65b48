package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaRecommender(t *testing.T) {
	w := &fakeWriter{}
	r := NewKafkaRecommender(w)
	assert.Equal(t, "kafka", r.Name())

	receipt, err := r.Recommend(context.Background(), testDispatch(t))
	require.NoError(t, err)
	assert.Equal(t, Receipt{ReferenceID: "req-1", Status: "queued"}, receipt)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("sess-1"), msg.Key)
	assert.Equal(t, "request-id", msg.Headers[0].Key)
	assert.Equal(t, []byte("req-1"), msg.Headers[0].Value)

	var d Dispatch
	require.NoError(t, json.Unmarshal(msg.Value, &d))
	assert.Equal(t, "rainy", d.Request.Weather)

	require.NoError(t, r.Close())
	assert.True(t, w.closed)
}

func TestKafkaRecommender_WriteError(t *testing.T) {
	r := NewKafkaRecommender(&fakeWriter{err: errors.New("leader not available")})
	_, err := r.Recommend(context.Background(), testDispatch(t))
	require.ErrorIs(t, err, ErrRecommendationFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Recommend(ctx, testDispatch(t))
	require.ErrorIs(t, err, ErrRecommendationTimeout)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "styling.recommendation-requests")
	assert.Equal(t, "styling.recommendation-requests", w.Topic)
	assert.NoError(t, w.Close())
}
