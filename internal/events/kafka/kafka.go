// Package kafka carries ledger events over a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetbuddy/internal/events"
	"budgetbuddy/internal/log"

	"github.com/segmentio/kafka-go"
)

const (
	headerKind    = "kind"
	handlerTries  = 3
	retryInterval = 500 * time.Millisecond
)

// Publisher writes events to one topic. Events for the same transaction
// or entity share a key, so they land on one partition in order.
type Publisher struct {
	writer *kafka.Writer
	logger *log.Logger
}

var (
	_ events.Publisher  = (*Publisher)(nil)
	_ events.Subscriber = (*Subscriber)(nil)
)

func NewPublisher(brokers []string, topic string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Discard()
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger.WithComponent(log.ComponentKafka),
	}
}

func (p *Publisher) Publish(ctx context.Context, ev events.LedgerEvent) error {
	msg, err := message(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	p.logger.DebugContext(ctx, "Published ledger event",
		log.FieldEventKind, ev.Kind,
		"event_id", ev.ID,
		"topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// message builds the Kafka record for ev.
func message(ev events.LedgerEvent) (kafka.Message, error) {
	data, err := ev.ToJSON()
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(partitionKey(ev)),
		Value:   data,
		Headers: []kafka.Header{{Key: headerKind, Value: []byte(ev.Kind)}},
		Time:    ev.Timestamp,
	}, nil
}

func partitionKey(ev events.LedgerEvent) string {
	if ev.Transaction != nil {
		return "tx:" + ev.Transaction.ID
	}
	return ev.Entity + ":" + ev.EntityID
}

// Subscriber reads events as part of a consumer group. Offsets are
// committed once the handler accepts a message.
type Subscriber struct {
	reader *kafka.Reader
	logger *log.Logger
}

func NewSubscriber(brokers []string, topic, groupID string, logger *log.Logger) *Subscriber {
	if logger == nil {
		logger = log.Discard()
	}
	return &Subscriber{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		logger: logger.WithComponent(log.ComponentKafka),
	}
}

// Subscribe blocks until ctx is done. A message the handler keeps failing
// on is logged and committed so one bad event cannot stall the group.
func (s *Subscriber) Subscribe(ctx context.Context, handler events.Handler) error {
	s.logger.InfoContext(ctx, "Started consuming ledger events", "topic", s.reader.Config().Topic)
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := s.handle(ctx, msg, handler); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.logger.ErrorContext(ctx, "Giving up on ledger event",
				log.FieldError, err,
				"offset", msg.Offset,
				"partition", msg.Partition)
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, msg kafka.Message, handler events.Handler) error {
	ev, err := events.FromJSON(msg.Value)
	if err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = handler(ctx, ev)
		if err == nil || attempt == handlerTries {
			return err
		}
		s.logger.WarnContext(ctx, "Failed to handle ledger event, retrying",
			log.FieldError, err,
			log.FieldEventKind, ev.Kind,
			"attempt", attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

func (s *Subscriber) Close() error {
	return s.reader.Close()
}
