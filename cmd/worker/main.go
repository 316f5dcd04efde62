package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"worker/internal/dispatch"
	"worker/internal/infra"
	"worker/internal/lifecycle"
	"worker/internal/media"
	"worker/internal/queue"
	"worker/internal/schema"
	"worker/internal/storage"
	"worker/internal/store"
	"worker/internal/synth"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if err := schema.VerifyDisjoint(); err != nil {
		logger.Fatal().Err(err).Msg("worker: schema invariant violated")
	}
	if cfg.AMQPURL == "" {
		logger.Fatal().Msg("worker: AMQP_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var status store.StatusStore
	switch {
	case cfg.DatabaseURL != "":
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: db connection failed")
		}
		defer pool.Close()
		pg := store.NewPostgresStore(pool, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to prepare status table")
		}
		status = pg
	case cfg.RedisAddr != "":
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: redis connection failed")
		}
		defer client.Close()
		status = store.NewRedisStore(client, logger)
	default:
		status = store.NewMemoryStore()
		logger.Warn().Msg("worker: no DATABASE_URL or REDIS_ADDR, status is not shared with the API")
	}

	var objects storage.ObjectStore
	switch {
	case cfg.BucketEndpointURL != "":
		bucket, err := storage.NewBucketStore(cfg.BucketEndpointURL, nil, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: invalid bucket endpoint")
		}
		objects = bucket
	case cfg.StoragePath != "":
		fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: invalid storage path")
		}
		objects = fileStore
	}

	dispatcher := dispatch.New(synth.NewStub(), dispatch.NewHTTPImageFetcher(nil), logger)
	persister := media.NewPersister(objects, status, media.NewFFmpegMuxer(), logger)
	lc := lifecycle.New(dispatcher, persister, status, logger, lifecycle.Config{MaxInFlight: cfg.MaxInFlight})

	consumer, err := queue.NewConsumer(cfg.AMQPURL, cfg.JobQueue, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: broker connection failed")
	}
	defer consumer.Close()

	if err := consumer.Run(ctx, lc.Process); err != nil {
		logger.Fatal().Err(err).Msg("worker: consume failed")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := lc.Wait(drainCtx); err != nil {
		logger.Error().Int("in_flight", lc.InFlight()).Msg("worker: shutdown with jobs still in flight")
	}
	logger.Info().Msg("worker stopped")
}
