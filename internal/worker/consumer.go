// Package worker ties the queue consumer to the pipeline runner: one
// delivery in, one pipeline execution, one ack out.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"newsreader/internal/entity"
	"newsreader/internal/queue"
)

// JobRunner executes the pipeline for one job. Its error is the failure
// cause for logging; the terminal status is already recorded by the
// time it returns.
type JobRunner interface {
	Run(ctx context.Context, job entity.Job) error
}

type Consumer struct {
	queue      queue.Consumer
	runner     JobRunner
	retryDelay time.Duration
	log        zerolog.Logger
}

func NewConsumer(q queue.Consumer, runner JobRunner, retryDelay time.Duration, log zerolog.Logger) *Consumer {
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	return &Consumer{queue: q, runner: runner, retryDelay: retryDelay, log: log}
}

// Run consumes until ctx is canceled, redialing the broker after a
// dropped connection. The in-flight job always finishes before the
// consume call returns, so shutdown never abandons work mid-pipeline.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.queue.Consume(ctx, c.handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error().Err(err).Dur("retry_in", c.retryDelay).Msg("consume loop dropped")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}

// handle runs one job. The runner never lets a failure escape as a
// panic and records the terminal state itself, so there is nothing to
// do with its error but log it; the queue layer acks either way.
//
// The runner gets a context detached from the shutdown signal: ctx
// cancellation stops the consume loop, not the job in flight, so the
// pipeline and its terminal status write complete before the ack.
func (c *Consumer) handle(ctx context.Context, job entity.Job) {
	if err := c.runner.Run(context.WithoutCancel(ctx), job); err != nil {
		c.log.Error().Err(err).Str("job_id", job.ID).Msg("job failed")
	}
}
