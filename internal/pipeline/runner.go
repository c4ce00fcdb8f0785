// Package pipeline executes the four-stage conversion for one job:
// extract, condense-and-segment, synthesize, assemble. The runner owns
// the job's status transitions and its temporary workspace; whatever
// happens inside a stage, the job ends in exactly one terminal state
// and no per-job files outlive the run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"newsreader/internal/entity"
	"newsreader/internal/status"
)

type URLTextSource interface {
	Extract(ctx context.Context, url string) (string, error)
}

type FileTextSource interface {
	Extract(ctx context.Context, path string) (string, error)
}

type Segmenter interface {
	Segment(ctx context.Context, text string, opts []entity.Option, credential string) ([]string, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, clipPath string) error
}

type Assembler interface {
	Assemble(ctx context.Context, clips []string, outPath string) (string, error)
}

// ResultLocator names the output artifact for a job. The same job id
// always maps to the same path, so a redelivered job overwrites its own
// result instead of duplicating it.
type ResultLocator interface {
	ResultPath(jobID string) string
}

type Runner struct {
	store     status.Store
	urls      URLTextSource
	docs      FileTextSource
	segmenter Segmenter
	synth     SpeechSynthesizer
	assembler Assembler
	results   ResultLocator

	// workDir hosts the per-job temp_<id> workspaces.
	workDir string
	// synthConcurrency bounds parallel segment synthesis. Order is kept
	// by segment index either way.
	synthConcurrency int

	log zerolog.Logger
}

type RunnerDeps struct {
	Store            status.Store
	URLs             URLTextSource
	Docs             FileTextSource
	Segmenter        Segmenter
	Synthesizer      SpeechSynthesizer
	Assembler        Assembler
	Results          ResultLocator
	WorkDir          string
	SynthConcurrency int
	Log              zerolog.Logger
}

func NewRunner(d RunnerDeps) *Runner {
	if d.SynthConcurrency < 1 {
		d.SynthConcurrency = 1
	}
	return &Runner{
		store:            d.Store,
		urls:             d.URLs,
		docs:             d.Docs,
		segmenter:        d.Segmenter,
		synth:            d.Synthesizer,
		assembler:        d.Assembler,
		results:          d.Results,
		workDir:          d.WorkDir,
		synthConcurrency: d.SynthConcurrency,
		log:              d.Log,
	}
}

// Run executes the pipeline for one job and records its terminal state.
// The returned error is the failure cause, for the consumer's log only;
// by the time Run returns, the status store already holds the outcome
// and all per-job temporary state is gone.
func (r *Runner) Run(ctx context.Context, job entity.Job) error {
	log := r.log.With().Str("job_id", job.ID).Logger()
	log.Info().Msg("processing started")

	if done, err := r.markProcessing(ctx, job.ID, log); err != nil {
		return err
	} else if done {
		return nil
	}

	workspace := filepath.Join(r.workDir, "temp_"+job.ID)
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		err = fmt.Errorf("%w: create workspace: %v", entity.ErrInfrastructure, err)
		r.finish(ctx, job.ID, "", err, log)
		r.cleanup(job, workspace, log)
		return err
	}

	// Cleanup runs on every exit path, including a stage panic, and
	// never propagates its own failures.
	defer r.cleanup(job, workspace, log)

	result, err := r.execute(ctx, job, workspace, log)
	r.finish(ctx, job.ID, result, err, log)
	if err != nil {
		log.Error().Str("cause", entity.Describe(err)).Msg("processing failed")
		return err
	}
	log.Info().Str("result", result).Msg("processing finished")
	return nil
}

// markProcessing moves the record forward, creating it if the submit
// side's write was lost. A record already at processing is a redelivery
// after a mid-processing crash: the store accepts the rewrite as a
// no-op and the job runs again. done=true means the job already has a
// terminal record (a redelivery after a pre-ack crash) and must not
// run again.
func (r *Runner) markProcessing(ctx context.Context, jobID string, log zerolog.Logger) (done bool, err error) {
	err = r.store.Transition(ctx, jobID, entity.Record{State: entity.StateProcessing})
	if err == nil {
		return false, nil
	}
	if rec, getErr := r.store.Get(ctx, jobID); getErr == nil && rec.State.Terminal() {
		log.Info().Str("state", string(rec.State)).Msg("job already terminal, skipping redelivery")
		return true, nil
	}
	return false, fmt.Errorf("mark processing: %w", err)
}

// execute runs stages 3-6. A panic in any stage is recovered into an
// error so it cannot escape past the runner boundary.
func (r *Runner) execute(ctx context.Context, job entity.Job, workspace string, log zerolog.Logger) (result string, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("pipeline stage panicked")
			result = ""
			err = fmt.Errorf("internal fault while processing the job")
		}
	}()

	text, err := r.extract(ctx, job)
	if err != nil {
		return "", err
	}

	segments, err := r.segmenter.Segment(ctx, text, entity.KnownOptions(job.Options), job.Credential)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: generation service returned no segments", entity.ErrSegmentation)
	}

	clips, err := r.synthesize(ctx, segments, workspace, log)
	if err != nil {
		return "", err
	}

	outPath, err := r.assembler.Assemble(ctx, clips, r.results.ResultPath(job.ID))
	if err != nil {
		return "", err
	}
	return filepath.Base(outPath), nil
}

func (r *Runner) extract(ctx context.Context, job entity.Job) (string, error) {
	var (
		text string
		err  error
	)
	switch {
	case job.URL != "":
		text, err = r.urls.Extract(ctx, job.URL)
	case job.FilePath != "":
		text, err = r.docs.Extract(ctx, job.FilePath)
	default:
		return "", fmt.Errorf("%w: job has no input", entity.ErrExtraction)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: input contained no text", entity.ErrExtraction)
	}
	return text, nil
}

// synthesize renders one clip per segment into the workspace. A single
// segment's failure is logged and that segment skipped; only zero
// usable clips aborts the job. Clip order follows segment index, not
// completion order, so bounded parallelism cannot reorder the readout.
func (r *Runner) synthesize(ctx context.Context, segments []string, workspace string, log zerolog.Logger) ([]string, error) {
	clipPaths := make([]string, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.synthConcurrency)
	for i, segment := range segments {
		text := strings.TrimSpace(segment)
		if text == "" {
			continue
		}
		path := filepath.Join(workspace, fmt.Sprintf("clip_%03d.wav", i+1))
		g.Go(func() error {
			if err := r.synth.Synthesize(gctx, text, path); err != nil {
				log.Warn().Err(err).Int("segment", i+1).Msg("segment synthesis failed, skipping")
				return nil
			}
			clipPaths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrSynthesis, err)
	}

	clips := make([]string, 0, len(clipPaths))
	for _, p := range clipPaths {
		if p != "" {
			clips = append(clips, p)
		}
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("%w: no segment could be synthesized", entity.ErrSynthesis)
	}
	return clips, nil
}

// finish writes the single terminal transition. The record carries a
// short cause string, never a stack trace and never the credential.
func (r *Runner) finish(ctx context.Context, jobID, result string, runErr error, log zerolog.Logger) {
	rec := entity.Record{State: entity.StateFinished, ResultReference: result}
	if runErr != nil {
		rec = entity.Record{State: entity.StateFailed, Error: entity.Describe(runErr)}
	}
	if err := r.store.Transition(ctx, jobID, rec); err != nil {
		log.Error().Err(err).Str("state", string(rec.State)).Msg("could not record terminal status")
	}
}

// cleanup destroys the workspace and the uploaded input file. Errors
// are logged, never escalated: cleanup must not throw past the runner.
func (r *Runner) cleanup(job entity.Job, workspace string, log zerolog.Logger) {
	if err := os.RemoveAll(workspace); err != nil {
		log.Error().Err(err).Str("workspace", workspace).Msg("could not remove workspace")
	}
	if job.FilePath != "" {
		if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
			log.Error().Err(err).Str("upload", job.FilePath).Msg("could not remove uploaded file")
		}
	}
}
