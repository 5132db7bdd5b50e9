package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/exosphere/internal/scheduler"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJobScheduled MessageType = "job.scheduled"
)

var _ scheduler.Publisher = (*Publisher)(nil)

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// JobScheduledPayload — payload сообщения о запланированном job.
type JobScheduledPayload struct {
	JobName        string    `json:"job_name"`
	Path           string    `json:"path"`
	DueAt          time.Time `json:"due_at"`
	DelaySeconds   int64     `json:"delay_seconds"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// channel — часть *amqp.Channel, нужная для публикации.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher публикует jobs в RabbitMQ. Реализует scheduler.Publisher.
type Publisher struct {
	withChannel func(ctx context.Context, fn func(ch channel) error) error
	now         func() time.Time
	logger      *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		withChannel: func(ctx context.Context, fn func(ch channel) error) error {
			return conn.WithChannel(ctx, func(ch *amqp.Channel) error { return fn(ch) })
		},
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Publish передаёт job исполнителю.
//
// Без задержки сообщение уходит сразу в jobs.ready. С задержкой — в
// jobs.delayed с expiration, откуда RabbitMQ переложит его в jobs.ready.
func (p *Publisher) Publish(ctx context.Context, job scheduler.ScheduledJob) error {
	msg := &Message{
		ID:   uuid.New().String(),
		Type: MessageTypeJobScheduled,
		Payload: JobScheduledPayload{
			JobName:        job.Name,
			Path:           string(job.Path),
			DueAt:          job.DueAt,
			DelaySeconds:   int64(job.Delay / time.Second),
			IdempotencyKey: job.IdempotencyKey,
		},
		Timestamp: p.now(),
	}

	routingKey := RoutingKeyReady
	if job.Delay > 0 {
		routingKey = RoutingKeyDelayed
	}

	publishing, err := buildPublishing(msg, job.IdempotencyKey, job.Delay)
	if err != nil {
		return err
	}

	return p.withChannel(ctx, func(ch channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeJobs), // exchange
			string(routingKey),   // routing key
			false,
			false,
			publishing,
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangeJobs, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", ExchangeJobs,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
			"job", job.Name,
		)

		return nil
	})
}

// buildPublishing сериализует сообщение.
// Задержка передаётся как expiration в миллисекундах.
func buildPublishing(msg *Message, idempotencyKey string, delay time.Duration) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
		MessageId:     msg.ID,
		CorrelationId: idempotencyKey,
		Type:          string(msg.Type),
		Timestamp:     msg.Timestamp,
		Body:          body,
	}
	if delay > 0 {
		publishing.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}
	return publishing, nil
}
