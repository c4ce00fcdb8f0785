// Package service holds the submitter: the only writer of new jobs.
package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"newsreader/internal/entity"
	"newsreader/internal/queue"
	"newsreader/internal/status"
	"newsreader/internal/storage"
)

// Upload is a submitted file before it is persisted.
type Upload struct {
	Filename string
	Reader   io.Reader
}

type SubmitRequest struct {
	SourceURL  string
	Upload     *Upload
	Options    []entity.Option
	Credential string
}

type SubmitService struct {
	publisher queue.Publisher
	store     status.Store
	files     *storage.Store
	log       zerolog.Logger
}

func NewSubmitService(publisher queue.Publisher, store status.Store, files *storage.Store, log zerolog.Logger) *SubmitService {
	return &SubmitService{publisher: publisher, store: store, files: files, log: log}
}

// Submit validates the request, persists any uploaded file, publishes
// the job as a persistent message, then writes the queued record.
// Publishing before the status write means a failed publish leaves no
// phantom "queued" record; validation failures perform no side effect
// at all.
func (s *SubmitService) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	jobID := uuid.NewString()

	job := entity.Job{
		ID:         jobID,
		URL:        req.SourceURL,
		Options:    entity.KnownOptions(req.Options),
		Credential: req.Credential,
	}

	if req.Upload != nil {
		path, err := s.files.SaveUpload(jobID, req.Upload.Filename, req.Upload.Reader)
		if err != nil {
			return "", fmt.Errorf("%w: store upload: %v", entity.ErrInfrastructure, err)
		}
		job.FilePath = path
	}

	if err := s.publisher.Publish(ctx, job); err != nil {
		// the upload is orphaned without a message; take it back out
		if job.FilePath != "" {
			if rmErr := s.files.Remove(job.FilePath); rmErr != nil {
				s.log.Error().Err(rmErr).Str("job_id", jobID).Msg("could not remove orphaned upload")
			}
		}
		return "", err
	}

	if err := s.store.Create(ctx, jobID); err != nil {
		// The message is on the queue, so the job will still run: the
		// runner upserts the record on its processing transition. Log
		// and carry on rather than failing a submission that happened.
		s.log.Error().Err(err).Str("job_id", jobID).Msg("could not write queued record")
	}

	s.log.Info().Str("job_id", jobID).Msg("job submitted")
	return jobID, nil
}

func validate(req SubmitRequest) error {
	hasFile := req.Upload != nil && req.Upload.Filename != ""
	if req.SourceURL == "" && !hasFile {
		return fmt.Errorf("%w: a URL or a file is required", entity.ErrValidation)
	}
	if req.SourceURL != "" && hasFile {
		return fmt.Errorf("%w: URL and file are mutually exclusive", entity.ErrValidation)
	}
	if req.Credential == "" {
		return fmt.Errorf("%w: API key is required", entity.ErrValidation)
	}
	return nil
}
