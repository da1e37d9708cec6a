package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes stored documents to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, topic: cfg.KafkaTopic, logger: logger}
}

// Publish serializes the documents and writes them in a single WriteMessages
// call. Messages are keyed by station so one station always lands on the
// same partition.
func (w *Writer) Publish(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(docs))
	for i := range docs {
		msg, err := serializeToMessage(docs[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d documents to %s: %w", len(msgs), w.topic, err)
	}
	w.logger.Debug("documents published", "topic", w.topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Document into a Kafka message.
func serializeToMessage(doc domain.Document) (kafkago.Message, error) {
	if doc.Key == "" {
		return kafkago.Message{}, domain.ErrMissingStation
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize document: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(doc.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "district_code", Value: []byte(doc.DistrictCode)},
			{Key: "co_grade", Value: []byte(doc.COGrade)},
			{Key: "pm10_grade", Value: []byte(doc.PM10Grade)},
		},
	}, nil
}
