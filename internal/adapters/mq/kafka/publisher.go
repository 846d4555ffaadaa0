package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/shootsim/internal/domain/model"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer is the part of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes shots to the shot topic, keyed by shot id.
type Publisher struct {
	writer Writer
}

// NewPublisher creates a publisher for topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return NewPublisherWithWriter(&kafkago.Writer{
		Addr:     kafkago.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafkago.LeastBytes{},
	})
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w Writer) *Publisher {
	return &Publisher{writer: w}
}

// Publish encodes and writes shots in one batch.
func (p *Publisher) Publish(ctx context.Context, shots ...model.Shot) error {
	msgs := make([]kafkago.Message, 0, len(shots))
	for _, s := range shots {
		value, err := json.Marshal(model.NewShotMessage(s))
		if err != nil {
			return fmt.Errorf("marshal shot %s: %w", s.ID, err)
		}
		msgs = append(msgs, kafkago.Message{Key: []byte(s.ID), Value: value})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write shots: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
