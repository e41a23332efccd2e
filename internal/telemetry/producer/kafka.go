// Package producer emits telemetry events to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"ecomconsole/backend/internal/telemetry"
)

// KafkaEmitter implements telemetry.Emitter using segmentio/kafka-go.
type KafkaEmitter struct {
	writer *kafka.Writer
}

// NewKafkaEmitter creates a Kafka emitter writing to topic. Returns nil when
// brokers or topic are unset (telemetry disabled). Call Close on shutdown.
func NewKafkaEmitter(brokers []string, topic string) *KafkaEmitter {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Emit serializes the event as JSON and writes it to the topic. A short write
// timeout keeps slow brokers from blocking callers.
func (p *KafkaEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if p == nil || p.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{Value: payload})
}

// Close closes the Kafka writer. Safe to call on a nil emitter.
func (p *KafkaEmitter) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
