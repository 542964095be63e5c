package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher is what the services depend on. Publish never returns an error:
// event delivery must not influence the outcome of the operation that
// produced the event.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any)
}

// Nop discards events. Used when no broker is configured and in tests.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}

// AMQPPublisher publishes persistent JSON messages to per-event queues on
// RabbitMQ over a long-lived connection.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	logger   *zap.Logger
}

func NewAMQPPublisher(url string, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{
		conn:     conn,
		ch:       ch,
		declared: make(map[string]bool),
		logger:   logger,
	}, nil
}

// Publish sends one event. Failures are logged and swallowed.
func (p *AMQPPublisher) Publish(ctx context.Context, name string, payload any) {
	env := Envelope{
		EventID:    uuid.New(),
		Name:       name,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	body, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("marshal event", zap.String("event", name), zap.Error(err))
		return
	}

	if !p.declared[name] {
		// Durable queue per event name, declared once per process.
		if _, err := p.ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			p.logger.Error("declare event queue", zap.String("event", name), zap.Error(err))
			return
		}
		p.declared[name] = true
	}

	err = p.ch.PublishWithContext(ctx,
		"",   // default exchange
		name, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    env.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("publish event", zap.String("event", name), zap.Error(err))
		return
	}

	p.logger.Debug("event published", zap.String("event", name))
}

func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
