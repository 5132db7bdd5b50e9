package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeJobs Exchange = "exosphere.jobs"
)

// Queues — имена очередей.
const (
	QueueJobsReady   Queue = "jobs.ready"
	QueueJobsDelayed Queue = "jobs.delayed"
)

// Routing keys.
const (
	RoutingKeyReady   RoutingKey = "ready"
	RoutingKeyDelayed RoutingKey = "delayed"
)

// SetupTopology объявляет exchange, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, DeclareTopology)
}

// DeclareTopology объявляет топологию на канале.
func DeclareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		string(ExchangeJobs), // name
		"direct",             // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeJobs, err)
	}

	for _, q := range queues() {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}

		err = ch.QueueBind(
			string(q.name),       // queue name
			string(q.routingKey), // routing key
			string(ExchangeJobs), // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", q.name, ExchangeJobs, err)
		}
	}

	return nil
}

type queueSpec struct {
	name       Queue
	routingKey RoutingKey
	args       amqp.Table
}

// queues — очереди топологии.
//
// jobs.delayed не читается никем: сообщение лежит там до истечения
// своего TTL (expiration) и уходит через dead-letter в jobs.ready.
func queues() []queueSpec {
	return []queueSpec{
		{QueueJobsReady, RoutingKeyReady, nil},
		{QueueJobsDelayed, RoutingKeyDelayed, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeJobs),
			"x-dead-letter-routing-key": string(RoutingKeyReady),
		}},
	}
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Exosphere RabbitMQ Topology:

    exosphere.jobs (direct)
    ├── jobs.ready   [routing: ready]
    │       Consumer: job executor
    └── jobs.delayed [routing: delayed]
            per-message TTL, dead-letter → exosphere.jobs/ready
  `
}
