// Package queue moves rendered emails through RabbitMQ so the API process
// never blocks on a mail provider. The publisher implements email.Dispatcher
// and the consumer hands each job back to the email service for delivery.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/pkg/email"
)

// Deliverer is the part of the email service the consumer needs
type Deliverer interface {
	Deliver(ctx context.Context, e *email.Email) error
}

// EmailPublisher publishes email jobs onto a durable queue
type EmailPublisher struct {
	url    string
	queue  string
	logger *logrus.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewEmailPublisher dials the broker and declares the queue
func NewEmailPublisher(url, queue string, logger *logrus.Logger) (*EmailPublisher, error) {
	p := &EmailPublisher{url: url, queue: queue, logger: logger}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *EmailPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

// Dispatch publishes the email as a persistent JSON message.
// A closed connection is re-dialed once before giving up.
func (p *EmailPublisher) Dispatch(ctx context.Context, e *email.Email) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal email job: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(e.Type),
		Body:         body,
	})
	if err != nil {
		p.logger.WithError(err).WithField("type", e.Type).Error("Failed to publish email job")
		return fmt.Errorf("failed to publish email job: %w", err)
	}
	return nil
}

// Close releases the channel and connection
func (p *EmailPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// EmailConsumer drains the email queue
type EmailConsumer struct {
	url       string
	queue     string
	deliverer Deliverer
	logger    *logrus.Logger
}

// NewEmailConsumer creates a consumer; call Run to start it
func NewEmailConsumer(url, queue string, deliverer Deliverer, logger *logrus.Logger) *EmailConsumer {
	return &EmailConsumer{url: url, queue: queue, deliverer: deliverer, logger: logger}
}

// Run consumes until ctx is done, reconnecting with backoff when the broker drops
func (c *EmailConsumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.WithError(err).Warnf("email-consumer: dial failed, retrying in %s", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consume(ctx, conn); err != nil {
			c.logger.WithError(err).Warn("email-consumer: consume loop ended, reconnecting")
		}
		conn.Close()
	}
}

func (c *EmailConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(10, 0, false); err != nil {
		c.logger.WithError(err).Warn("email-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.logger.WithError(err).Error("email-consumer: job failed")
				// dropped rather than requeued so a bad job cannot spin
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *EmailConsumer) handle(ctx context.Context, body []byte) error {
	var job email.Email
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if len(job.To) == 0 {
		return errors.New("email job has no recipients")
	}

	sendCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	return c.deliverer.Deliver(sendCtx, &job)
}
