// The API process accepts submissions, serves status and results, and
// stores reader feedback. Jobs themselves run in cmd/worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"newsreader/internal/config"
	"newsreader/internal/queue"
	"newsreader/internal/repository/postgres"
	"newsreader/internal/service"
	"newsreader/internal/status"
	"newsreader/internal/storage"
	httptransport "newsreader/internal/transport/http"
)

// @title Newsreader API
// @version 1.0
// @description Converts articles and documents into spoken audio.
// @BasePath /
func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "api").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	var feedback httptransport.FeedbackStore
	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to postgres")
		}
		defer pool.Close()

		repo := postgres.NewFeedbackRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not prepare feedback schema")
		}
		feedback = repo
	} else {
		log.Warn().Msg("POSTGRES_DSN not set, review endpoint disabled")
	}

	publisher := queue.NewRabbitMQPublisher(cfg.AMQPURL, cfg.QueueName)
	submit := service.NewSubmitService(publisher, store, files, log)
	handler := httptransport.NewHandler(submit, store, files, feedback, cfg.WorkDir, log)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httptransport.Routes(handler, log),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
