// Package amqp publishes and consumes ledger events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"budgetbuddy/internal/events"
	"budgetbuddy/internal/log"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Client is an events.Publisher and events.Subscriber backed by a durable
// queue bound to a direct exchange.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	breakerMu    sync.Mutex
	state        int32
	failureCount int64
	lastFailure  time.Time
}

var discard = log.Discard()

var (
	_ events.Publisher  = (*Client)(nil)
	_ events.Subscriber = (*Client)(nil)
)

// NewClient dials the broker and declares the exchange and queue.
func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if logger != nil {
		c.logger = logger.WithComponent(log.ComponentAMQP)
	}
	if _, err := c.ensureChannel(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return discard
	}
	return c.logger
}

// ensureChannel returns the open channel, dialing again if the previous
// connection went away.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, channel
	return channel, nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends ev to the exchange. It fails fast while the circuit is open.
func (c *Client) Publish(ctx context.Context, ev events.LedgerEvent) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, dropping event %s", ev.ID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := toPublishing(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, msg); err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.reset()
		}
		return fmt.Errorf("publish event: %w", err)
	}
	c.recordSuccess()

	c.log().DebugContext(ctx, "Published ledger event",
		log.FieldEventKind, ev.Kind,
		"event_id", ev.ID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// Subscribe consumes events until ctx is done. Deliveries are acked after
// the handler succeeds, requeued when it fails and dropped when they
// cannot be decoded. A lost connection is redialed with backoff.
func (c *Client) Subscribe(ctx context.Context, handler events.Handler) error {
	attempt := 0
	for {
		err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			c.log().InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if err == nil {
			attempt = 0
			continue
		}

		delay := exponentialBackoff(attempt)
		attempt++
		c.log().WarnContext(ctx, "Event consumption interrupted, reconnecting",
			log.FieldError, err,
			"attempt", attempt,
			"delay", delay)
		c.reset()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) consume(ctx context.Context, handler events.Handler) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.log().InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, delivery, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, delivery amqp091.Delivery, handler events.Handler) {
	ev, err := fromDelivery(delivery)
	if err != nil {
		c.log().ErrorContext(ctx, "Failed to decode event", log.FieldError, err)
		delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, ev); err != nil {
		c.log().ErrorContext(ctx, "Failed to handle event",
			log.FieldError, err,
			log.FieldEventKind, ev.Kind,
			"event_id", ev.ID)
		delivery.Nack(false, true)
		return
	}

	delivery.Ack(false)
	c.log().DebugContext(ctx, "Processed ledger event",
		log.FieldEventKind, ev.Kind,
		"event_id", ev.ID)
}

// isCircuitOpen reports whether publishes should be refused. An open
// circuit moves to half-open once openTimeout has passed since the last
// failure, letting one attempt through.
func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.breakerMu.Lock()
	last := c.lastFailure
	c.breakerMu.Unlock()

	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	failures := atomic.AddInt64(&c.failureCount, 1)
	c.breakerMu.Lock()
	c.lastFailure = time.Now()
	c.breakerMu.Unlock()

	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.log().Warn("AMQP circuit breaker opened", "failures", failures)
		}
	}
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}
