// Package queue moves accepted generation jobs between the API surface and
// the worker process over RabbitMQ. Messages carry the full raw input so the
// consumer can re-run classification and validation on its own side.
package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JobMessage is the wire envelope for one queued generation request.
type JobMessage struct {
	JobID string         `json:"job_id"`
	Input map[string]any `json:"input"`
}

// Publisher owns a channel on a dedicated connection and publishes job
// messages to the main queue.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewPublisher dials the broker and declares the queue topology. The main
// queue dead-letters rejected messages to <queue>.dlq; <queue>.retry TTLs
// messages back onto the main queue. Both sides declare the same topology so
// either can start first.
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func declareTopology(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue+".dlq", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queue+".retry", true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
	}); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue + ".dlq",
	}); err != nil {
		return err
	}
	return nil
}

// PublishJob enqueues one job as a persistent message.
func (p *Publisher) PublishJob(ctx context.Context, jobID string, input map[string]any) error {
	body, err := json.Marshal(JobMessage{JobID: jobID, Input: input})
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
