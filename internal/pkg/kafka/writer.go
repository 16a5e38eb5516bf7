package kafka

import (
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

type WriterConfig struct {
	Brokers []string
	Topic   string
}

// NewWriter returns an async writer that partitions by message key. Delivery
// errors surface only through the completion callback, which logs them.
func NewWriter(cfg WriterConfig) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				slog.Error("Kafka delivery failed", "topic", cfg.Topic, "messages", len(messages), "error", err)
			}
		},
	}
}
