// Package kafka publishes emitted records to a topic, mirroring the stdout
// stream for consumers that want the per-observation and aggregate layers
// without re-running the pipeline.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/3dfirelab/webFET/internal/domain"
)

// Writer produces output records to a Kafka topic. It implements emit.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the record topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Emit publishes one record. Raw records are keyed by fire event id and
// aggregates by cell id, so everything about one subject lands on one
// partition in emission order.
func (w *Writer) Emit(ctx context.Context, kind, key string, line []byte) error {
	if err := w.writer.WriteMessages(ctx, buildMessage(kind, key, line)); err != nil {
		return fmt.Errorf("publish %s record: %w", kind, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// buildMessage wraps an encoded record into a Kafka message.
func buildMessage(kind, key string, line []byte) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(key),
		Value: line,
		Headers: []kafkago.Header{
			{Key: "record_kind", Value: []byte(kind)},
			{Key: "produced_at", Value: []byte(domain.Now().UTC().Format(time.RFC3339))},
		},
	}
}
