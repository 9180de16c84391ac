package notify

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue задаёт очередь уведомлений маркетплейса.
const DefaultQueue = "marketplace.notifications"

// AMQPEmitter публикует уведомления в долговечную очередь RabbitMQ.
type AMQPEmitter struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPEmitter подключается к брокеру и объявляет очередь уведомлений.
func NewAMQPEmitter(url, queue string) (*AMQPEmitter, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	return &AMQPEmitter{conn: conn, ch: ch, queue: queue}, nil
}

// Emit публикует уведомление как постоянное JSON-сообщение.
func (a *AMQPEmitter) Emit(ctx context.Context, env Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID.String(),
		Type:         string(env.Kind),
		Timestamp:    env.OccurredAt,
		Body:         body,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ch.PublishWithContext(ctx, "", a.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", env.Kind, err)
	}
	return nil
}

// Close закрывает канал и соединение с брокером.
func (a *AMQPEmitter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	chErr := a.ch.Close()
	connErr := a.conn.Close()
	if chErr != nil {
		return fmt.Errorf("close channel: %w", chErr)
	}
	if connErr != nil {
		return fmt.Errorf("close connection: %w", connErr)
	}
	return nil
}
