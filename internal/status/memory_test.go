package status

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsreader/internal/entity"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, "job-1"))

	rec, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateQueued, rec.State)

	assert.ErrorIs(t, s.Create(ctx, "job-1"), ErrExists)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ForwardOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, "job-1"))

	require.NoError(t, s.Transition(ctx, "job-1", entity.Record{State: entity.StateProcessing}))

	// back to queued is illegal
	err := s.Transition(ctx, "job-1", entity.Record{State: entity.StateQueued})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	require.NoError(t, s.Transition(ctx, "job-1", entity.Record{
		State:           entity.StateFinished,
		ResultReference: "job-1.mp3",
	}))

	rec, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateFinished, rec.State)
	assert.Equal(t, "job-1.mp3", rec.ResultReference)
}

func TestMemoryStore_TerminalNeverChanges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, "job-1"))
	require.NoError(t, s.Transition(ctx, "job-1", entity.Record{State: entity.StateProcessing}))
	require.NoError(t, s.Transition(ctx, "job-1", entity.Record{
		State: entity.StateFailed,
		Error: "SynthesisError: could not synthesize any audio clips",
	}))

	err := s.Transition(ctx, "job-1", entity.Record{State: entity.StateProcessing})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	err = s.Transition(ctx, "job-1", entity.Record{
		State:           entity.StateFinished,
		ResultReference: "job-1.mp3",
	})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// rewriting the same terminal state is an accepted no-op
	// (redelivered job re-reporting its outcome)
	require.NoError(t, s.Transition(ctx, "job-1", entity.Record{
		State: entity.StateFailed,
		Error: "SynthesisError: could not synthesize any audio clips",
	}))

	rec, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateFailed, rec.State)
	assert.Contains(t, rec.Error, "SynthesisError")
}

func TestMemoryStore_ProcessingRewriteAllowed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, "job-1"))
	require.NoError(t, s.Transition(ctx, "job-1", entity.Record{State: entity.StateProcessing}))

	// a redelivered in-flight job re-enters processing as a no-op
	require.NoError(t, s.Transition(ctx, "job-1", entity.Record{State: entity.StateProcessing}))

	rec, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateProcessing, rec.State)

	// and can still reach a terminal state afterward
	require.NoError(t, s.Transition(ctx, "job-1", entity.Record{
		State:           entity.StateFinished,
		ResultReference: "job-1.mp3",
	}))
}

func TestMemoryStore_ProcessingUpsertsMissingRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// a terminal transition for an unknown job is rejected
	err := s.Transition(ctx, "ghost", entity.Record{State: entity.StateFinished, ResultReference: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	// processing creates the record when the submit-side write was lost
	require.NoError(t, s.Transition(ctx, "ghost", entity.Record{State: entity.StateProcessing}))
	rec, err := s.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, entity.StateProcessing, rec.State)
}

func TestMemoryStore_RejectsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, "job-1"))

	// error string on a non-failed state
	err := s.Transition(ctx, "job-1", entity.Record{State: entity.StateProcessing, Error: "boom"})
	assert.Error(t, err)

	// result reference on a failed state
	err = s.Transition(ctx, "job-1", entity.Record{State: entity.StateFailed, ResultReference: "x"})
	assert.Error(t, err)
}

func TestMemoryStore_ConcurrentWritersDistinctJobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, s.Create(ctx, fmt.Sprintf("job-%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("job-%d", i)
			_ = s.Transition(ctx, id, entity.Record{State: entity.StateProcessing})
			_ = s.Transition(ctx, id, entity.Record{
				State:           entity.StateFinished,
				ResultReference: id + ".mp3",
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("job-%d", i)
		rec, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entity.StateFinished, rec.State)
		assert.Equal(t, id+".mp3", rec.ResultReference)
	}
}
