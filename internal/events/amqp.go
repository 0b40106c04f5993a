package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Connection holds the RabbitMQ connection and channel.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	lg      *zap.SugaredLogger
}

func Connect(url string, lg *zap.SugaredLogger) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	lg.Infow("connected to rabbitmq")
	return &Connection{conn: conn, channel: ch, lg: lg}, nil
}

func (c *Connection) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.lg.Errorw("failed to close rabbitmq channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return err
		}
	}
	return nil
}

// AMQPPublisher sends events as persistent JSON messages to a durable queue.
type AMQPPublisher struct {
	conn  *Connection
	queue string

	declareOnce sync.Once
	declareErr  error

	published atomic.Int64
	failed    atomic.Int64
}

func NewAMQPPublisher(conn *Connection, queue string) *AMQPPublisher {
	return &AMQPPublisher{conn: conn, queue: queue}
}

func (p *AMQPPublisher) declare() error {
	p.declareOnce.Do(func() {
		_, p.declareErr = p.conn.channel.QueueDeclare(
			p.queue, // name
			true,    // durable
			false,   // delete when unused
			false,   // exclusive
			false,   // no-wait
			nil,     // arguments
		)
	})
	return p.declareErr
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if err := p.declare(); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = p.conn.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    ev.ID,
			Type:         ev.Type,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.published.Add(1)
	return nil
}

// Stats returns the published and failed counters.
func (p *AMQPPublisher) Stats() (published, failed int64) {
	return p.published.Load(), p.failed.Load()
}
