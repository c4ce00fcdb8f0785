// Package queue carries jobs over a durable RabbitMQ queue. Messages
// are published persistent to a durable queue and acknowledged only
// after the handler returns, so a consumer crash mid-job redelivers the
// message instead of losing it (at-least-once).
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"newsreader/internal/entity"
)

// Publisher enqueues one job. Implementations must mark the delivery
// persistent and declare the destination queue durable before the first
// publish.
type Publisher interface {
	Publish(ctx context.Context, job entity.Job) error
}

// Handler processes one delivered job. The consumer acknowledges the
// message after Handler returns, regardless of the job's outcome; the
// handler owns the terminal status, the queue owns delivery.
type Handler func(ctx context.Context, job entity.Job)

// Consumer pulls jobs one at a time (up to the prefetch bound) and
// feeds them to a Handler.
type Consumer interface {
	Consume(ctx context.Context, handle Handler) error
}

func encodeJob(job entity.Job) ([]byte, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	return body, nil
}

func decodeJob(body []byte) (entity.Job, error) {
	var job entity.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return entity.Job{}, fmt.Errorf("decode job: %w", err)
	}
	if job.ID == "" {
		return entity.Job{}, fmt.Errorf("decode job: missing job_id")
	}
	return job, nil
}
