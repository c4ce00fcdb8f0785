// The worker process consumes jobs from the durable queue and runs the
// conversion pipeline. It refuses to start when its collaborators are
// unreachable or the work filesystem is short on space: failing here is
// cheaper than failing mid-job.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"newsreader/internal/audio"
	"newsreader/internal/condense"
	"newsreader/internal/config"
	"newsreader/internal/extract"
	"newsreader/internal/health"
	"newsreader/internal/pipeline"
	"newsreader/internal/queue"
	"newsreader/internal/status"
	"newsreader/internal/storage"
	"newsreader/internal/tts"
	"newsreader/internal/worker"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := health.CheckDisk(cfg.WorkDir, cfg.Worker.MinFreeDisk); err != nil {
		log.Fatal().Err(err).Msg("not enough disk space to process jobs")
	}
	snap := health.Take(cfg.WorkDir)
	log.Info().
		Float64("cpu_percent", snap.CPUPercent).
		Uint64("mem_available", snap.MemAvailable).
		Uint64("disk_free", snap.DiskFree).
		Msg("host resources")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("could not reach redis")
	}
	defer redisClient.Close()
	store := status.NewRedisStore(redisClient)

	files, err := storage.New(cfg.UploadDir, cfg.ResultsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("could not prepare storage directories")
	}

	timeout := cfg.Collaborator.HTTPTimeout
	ttsClient := tts.NewClient(cfg.Collaborator.TTSURL, timeout)
	if err := ttsClient.Ready(ctx); err != nil {
		log.Fatal().Err(err).Str("url", cfg.Collaborator.TTSURL).Msg("speech service is not ready")
	}

	assembler, err := audio.NewFFmpegAssembler(cfg.Collaborator.FFmpegBin, log)
	if err != nil {
		log.Fatal().Err(err).Msg("ffmpeg is not available")
	}

	runner := pipeline.NewRunner(pipeline.RunnerDeps{
		Store:            store,
		URLs:             extract.NewURLExtractor(timeout),
		Docs:             extract.NewDocumentClient(cfg.Collaborator.ExtractorURL, timeout),
		Segmenter:        condense.NewClient(cfg.Collaborator.CondenseURL, timeout),
		Synthesizer:      ttsClient,
		Assembler:        assembler,
		Results:          files,
		WorkDir:          cfg.WorkDir,
		SynthConcurrency: cfg.Worker.SynthConcurrency,
		Log:              log,
	})

	consumer := queue.NewRabbitMQConsumer(cfg.AMQPURL, cfg.QueueName, cfg.Worker.Prefetch, log)

	if err := worker.NewConsumer(consumer, runner, cfg.Worker.RetryDelay, log).Run(ctx); err != nil &&
		!errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("consumer stopped")
	}
	log.Info().Msg("worker stopped")
}
