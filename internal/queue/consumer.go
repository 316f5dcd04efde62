package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handler processes one dequeued job. A returned error nacks the delivery
// without requeue, which routes it to the dead-letter queue.
type Handler func(ctx context.Context, jobID string, input map[string]any) error

// Consumer drains the job queue with a fixed-size worker pool. Prefetch is
// tied to pool size so the broker never hands us more than we can run.
type Consumer struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	queue       string
	concurrency int
	logger      zerolog.Logger
}

// NewConsumer dials the broker, declares the same topology as the publisher,
// and applies QoS. concurrency below 1 defaults to 2.
func NewConsumer(url, queue string, concurrency int, logger zerolog.Logger) (*Consumer, error) {
	if concurrency < 1 {
		concurrency = 2
	}
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
	if err := ch.Qos(concurrency, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch, queue: queue, concurrency: concurrency, logger: logger}, nil
}

// Run consumes until ctx is canceled, then drains the pool and returns.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.logger.Info().Str("queue", c.queue).Int("concurrency", c.concurrency).Msg("queue: consumer started")

	jobs := make(chan amqp.Delivery, c.concurrency*2)
	var wg sync.WaitGroup
	wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				c.handleDelivery(ctx, workerID, d, handle)
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("queue: consumer shutting down")
			close(jobs)
			wg.Wait()
			return nil
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn().Msg("queue: delivery channel closed")
				time.Sleep(time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, workerID int, d amqp.Delivery, handle Handler) {
	var m JobMessage
	if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
		c.logger.Error().Err(err).Int("worker", workerID).Msg("queue: bad message")
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	if err := handle(ctx, m.JobID, m.Input); err != nil {
		c.logger.Error().Err(err).
			Int("worker", workerID).
			Str("job_id", m.JobID).
			Dur("cost", time.Since(start)).
			Msg("queue: job failed")
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error().Err(err).Str("job_id", m.JobID).Msg("queue: ack failed")
	}
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
