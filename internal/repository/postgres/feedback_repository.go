// Package postgres backs the review endpoint: reader feedback is the
// one piece of state that must outlive jobs and processes both.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

type Feedback struct {
	ID          uuid.UUID
	Review      string
	SubmittedAt time.Time
}

type FeedbackRepository struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{pool: pool}
}

// EnsureSchema creates the feedback table when it does not exist yet.
func (r *FeedbackRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS feedback (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	review TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	_, err := r.pool.Exec(ctx, q)
	return err
}

func (r *FeedbackRepository) Create(ctx context.Context, review string, submittedAt time.Time) (uuid.UUID, error) {
	const q = `
INSERT INTO feedback (review, submitted_at)
VALUES ($1, $2)
RETURNING id;
`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q, review, submittedAt).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Recent returns the newest feedback entries, newest first.
func (r *FeedbackRepository) Recent(ctx context.Context, limit int) ([]Feedback, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, review, submitted_at
FROM feedback
ORDER BY submitted_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.Review, &f.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
