package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/notification"
	kafkago "github.com/segmentio/kafka-go"
)

const aggregateType = "leave_request"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// KafkaSink publishes events as JSON keyed by the owner's user id, so all
// events for one user land on one partition in order.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(writer messageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Deliver(ctx context.Context, event notification.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return k.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "aggregate_type", Value: []byte(aggregateType)},
		},
	})
}
