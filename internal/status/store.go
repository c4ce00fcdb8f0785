// Package status persists job state keyed by job id. The submitter
// creates a record at queued; only the job runner transitions it
// afterward. Every implementation guarantees atomic per-key updates and
// forward-only movement: readers never observe a half-written record and
// a terminal record never changes again.
package status

import (
	"context"
	"errors"

	"newsreader/internal/entity"
)

var (
	ErrNotFound = errors.New("job not found")
	ErrExists   = errors.New("job record already exists")
	// ErrIllegalTransition is returned for backward or terminal-escaping
	// state moves.
	ErrIllegalTransition = errors.New("illegal status transition")
)

type Store interface {
	// Create writes the initial queued record. Exactly one record per
	// job id: a second create fails with ErrExists.
	Create(ctx context.Context, jobID string) error

	// Get returns the current record or ErrNotFound.
	Get(ctx context.Context, jobID string) (entity.Record, error)

	// Transition moves the record forward atomically. A processing
	// transition with no existing record upserts one (the submit-side
	// status write can be lost after a successful publish). Writing the
	// state the record already holds is a no-op for processing and for
	// terminal states: a job redelivered after a mid-processing crash
	// re-enters processing and runs again, while a redelivered job with
	// a terminal record cannot disturb its own outcome.
	Transition(ctx context.Context, jobID string, rec entity.Record) error
}

// decide applies the transition rules shared by all implementations.
// cur is nil when no record exists. It returns the record to write,
// or write=false for an accepted no-op.
func decide(cur *entity.Record, next entity.Record) (write bool, err error) {
	if err := next.Validate(); err != nil {
		return false, err
	}
	if cur == nil {
		if next.State != entity.StateProcessing {
			return false, ErrNotFound
		}
		return true, nil
	}
	if cur.State == next.State && (cur.State.Terminal() || cur.State == entity.StateProcessing) {
		return false, nil
	}
	if !entity.CanTransition(cur.State, next.State) {
		return false, ErrIllegalTransition
	}
	return true, nil
}
