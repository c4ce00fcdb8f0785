package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"newsreader/internal/entity"
)

// RabbitMQPublisher dials the broker per publish. Submission traffic is
// light and a fresh connection sidesteps stale-channel handling; the
// consumer side keeps a long-lived connection instead.
type RabbitMQPublisher struct {
	url   string
	queue string
}

func NewRabbitMQPublisher(url, queueName string) *RabbitMQPublisher {
	return &RabbitMQPublisher{url: url, queue: queueName}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, job entity.Job) error {
	body, err := encodeJob(job)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("%w: dial broker: %v", entity.ErrInfrastructure, err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("%w: open channel: %v", entity.ErrInfrastructure, err)
	}
	defer ch.Close()

	if err := declareQueue(ch, p.queue); err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: publish: %v", entity.ErrInfrastructure, err)
	}
	return nil
}

// RabbitMQConsumer holds a long-lived connection and hands deliveries to
// a handler one at a time. Prefetch caps unacknowledged deliveries per
// consumer; 1 keeps a single pipeline execution in flight and is the
// backpressure bound on the queue.
type RabbitMQConsumer struct {
	url      string
	queue    string
	prefetch int
	log      zerolog.Logger
}

func NewRabbitMQConsumer(url, queueName string, prefetch int, log zerolog.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	return &RabbitMQConsumer{url: url, queue: queueName, prefetch: prefetch, log: log}
}

// Consume blocks until ctx is done or the broker connection drops. The
// message is acked only after handle returns: a crash before the ack
// leaves it unacknowledged and the broker redelivers it.
func (c *RabbitMQConsumer) Consume(ctx context.Context, handle Handler) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("%w: dial broker: %v", entity.ErrInfrastructure, err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("%w: open channel: %v", entity.ErrInfrastructure, err)
	}
	defer ch.Close()

	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("%w: set qos: %v", entity.ErrInfrastructure, err)
	}

	deliveries, err := ch.Consume(
		c.queue,
		"",    // consumer tag, broker-assigned
		false, // autoAck off: ack is deferred until the job completes
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("%w: start consume: %v", entity.ErrInfrastructure, err)
	}

	c.log.Info().Str("queue", c.queue).Int("prefetch", c.prefetch).Msg("waiting for jobs")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: delivery channel closed", entity.ErrInfrastructure)
			}
			c.handleDelivery(ctx, d, handle)
		}
	}
}

func (c *RabbitMQConsumer) handleDelivery(ctx context.Context, d amqp.Delivery, handle Handler) {
	job, err := decodeJob(d.Body)
	if err != nil {
		// A malformed payload can never succeed; drop it instead of
		// redelivering forever.
		c.log.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("dropping malformed message")
		if ackErr := d.Ack(false); ackErr != nil {
			c.log.Error().Err(ackErr).Msg("ack malformed message")
		}
		return
	}

	c.log.Info().Str("job_id", job.ID).Uint64("delivery_tag", d.DeliveryTag).Msg("received job")

	handle(ctx, job)

	if err := d.Ack(false); err != nil {
		c.log.Error().Err(err).Str("job_id", job.ID).Msg("ack job")
	}
}

// declareQueue makes the queue durable so messages survive a broker
// restart. Declaration is idempotent; both sides do it so either can
// start first.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("%w: declare queue: %v", entity.ErrInfrastructure, err)
	}
	return nil
}
