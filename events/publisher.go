// Package events publishes classification results to interested consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ScanClassified is emitted after an image has been classified.
type ScanClassified struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Score float64   `json:"score"`
	At    time.Time `json:"at"`
}

// Publisher delivers scan events.
type Publisher interface {
	Publish(ctx context.Context, ev ScanClassified) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ScanClassified) error { return nil }
func (NopPublisher) Close() error { return nil }

// KafkaPublisher writes events as JSON to a Kafka topic, keyed by scan key.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher creates an asynchronous writer; delivery failures are logged.
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("scan event delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev ScanClassified) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func encode(ev ScanClassified) (kafka.Message, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(ev.Key), Value: b, Time: ev.At}, nil
}
