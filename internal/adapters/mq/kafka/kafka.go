// Package kafka feeds shots published on a Kafka topic into the intake.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/okian/shootsim/internal/adapters/mq/queue"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	defaultMaxWait = time.Second
	retryDelay     = 50 * time.Millisecond
)

// Submitter accepts decoded shots. It reports duplicates and returns
// queue.ErrFull when the shot queue is saturated.
type Submitter interface {
	Submit(ctx context.Context, shot model.Shot) (duplicate bool, err error)
}

// Reader is the part of *kafka.Reader the source needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config addresses the shot topic.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
	MaxWait time.Duration
}

// Source reads shot messages and submits them.
type Source struct {
	reader Reader
	sink   Submitter
	now    func() time.Time
	log    logger.Logger
}

// NewSource creates a consumer-group reader for cfg.
func NewSource(cfg Config, sink Submitter) (*Source, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka brokers and topic are required")
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  maxWait,
	})
	return NewSourceWithReader(reader, sink), nil
}

// NewSourceWithReader wraps an existing reader.
func NewSourceWithReader(r Reader, sink Submitter) *Source {
	return &Source{
		reader: r,
		sink:   sink,
		now:    time.Now,
		log:    logger.Get().Named("kafka"),
	}
}

// Run consumes until ctx is cancelled. Malformed messages are committed and
// skipped; a full queue is retried so no valid shot is lost.
func (s *Source) Run(ctx context.Context) error {
	s.log.Info(ctx, "shot source started")
	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info(ctx, "shot source stopped")
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Error(ctx, "fetch failed", logger.Error(err))
			if !sleep(ctx, retryDelay) {
				return nil
			}
			continue
		}

		if err := s.handle(ctx, m); err != nil {
			return nil
		}
		if err := s.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			s.log.Warn(ctx, "commit failed", logger.Int64("offset", m.Offset), logger.Error(err))
		}
	}
}

// handle returns an error only when ctx ended while waiting for queue room.
func (s *Source) handle(ctx context.Context, m kafkago.Message) error {
	var msg model.ShotMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		metrics.RecordShotRejected("malformed")
		s.log.Warn(ctx, "malformed shot message",
			logger.String("key", string(m.Key)),
			logger.Int64("offset", m.Offset),
			logger.Error(err),
		)
		return nil
	}
	shot, err := msg.Shot(s.now())
	if err != nil {
		metrics.RecordShotRejected("invalid")
		s.log.Warn(ctx, "invalid shot message", logger.Int64("offset", m.Offset), logger.Error(err))
		return nil
	}
	if shot.ID == "" {
		shot.ID = fmt.Sprintf("%s-%d-%d", m.Topic, m.Partition, m.Offset)
	}

	for {
		dup, err := s.sink.Submit(ctx, shot)
		switch {
		case err == nil:
			if dup {
				s.log.Debug(ctx, "duplicate shot", logger.String("shot_id", shot.ID))
			}
			return nil
		case errors.Is(err, queue.ErrFull):
			if !sleep(ctx, retryDelay) {
				return ctx.Err()
			}
		default:
			s.log.Error(ctx, "submit failed", logger.String("shot_id", shot.ID), logger.Error(err))
			return nil
		}
	}
}

// Close closes the reader.
func (s *Source) Close() error {
	return s.reader.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
