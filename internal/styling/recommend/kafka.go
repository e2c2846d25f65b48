package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the recommender needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer for the recommendation request topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           5 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// KafkaRecommender publishes dispatches as JSON events keyed by session id,
// so one conversation's requests stay ordered within a partition.
type KafkaRecommender struct {
	writer MessageWriter
}

func NewKafkaRecommender(w MessageWriter) *KafkaRecommender {
	return &KafkaRecommender{writer: w}
}

func (r *KafkaRecommender) Name() string { return "kafka" }

func (r *KafkaRecommender) Recommend(ctx context.Context, d Dispatch) (Receipt, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrRecommendationFailed, err)
	}

	msg := kafka.Message{
		Key:   []byte(d.SessionID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "request-id", Value: []byte(d.RequestID)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return Receipt{}, ErrRecommendationTimeout
		}
		return Receipt{}, fmt.Errorf("%w: %v", ErrRecommendationFailed, err)
	}
	return Receipt{ReferenceID: d.RequestID, Status: "queued"}, nil
}

func (r *KafkaRecommender) Close() error {
	return r.writer.Close()
}
