package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"worker/internal/dispatch"
	"worker/internal/http/handlers"
	"worker/internal/http/httpapi"
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
		logger.Fatal().Err(err).Msg("schema invariant violated")
	}

	ctx := context.Background()

	// Status store: Postgres when configured, else Redis, else in-memory.
	var (
		status store.StatusStore
		reader store.Reader
	)
	switch {
	case cfg.DatabaseURL != "":
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		pg := store.NewPostgresStore(pool, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare status table")
		}
		status, reader = pg, pg
	case cfg.RedisAddr != "":
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer client.Close()
		rs := store.NewRedisStore(client, logger)
		status, reader = rs, rs
	default:
		mem := store.NewMemoryStore()
		status, reader = mem, mem
		logger.Warn().Msg("no DATABASE_URL or REDIS_ADDR, using in-memory status store")
	}

	// Object store: remote bucket when configured, else local disk, else
	// inline data URIs only.
	var (
		objects   storage.ObjectStore
		fileStore *storage.FileStore
	)
	switch {
	case cfg.BucketEndpointURL != "":
		bucket, err := storage.NewBucketStore(cfg.BucketEndpointURL, nil, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid bucket endpoint")
		}
		objects = bucket
	case cfg.StoragePath != "":
		fileStore, err = storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid storage path")
		}
		objects = fileStore
	default:
		logger.Warn().Msg("no object storage configured, media is returned inline")
	}

	dispatcher := dispatch.New(synth.NewStub(), dispatch.NewHTTPImageFetcher(nil), logger)
	persister := media.NewPersister(objects, status, media.NewFFmpegMuxer(), logger)
	lc := lifecycle.New(dispatcher, persister, status, logger, lifecycle.Config{MaxInFlight: cfg.MaxInFlight})

	app := handlers.NewApp(lc, status, reader, logger)
	if fileStore != nil {
		app.Blobs = fileStore
	}
	if cfg.AMQPURL != "" {
		publisher, err := queue.NewPublisher(cfg.AMQPURL, cfg.JobQueue)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect broker")
		}
		defer publisher.Close()
		app.Jobs = publisher
		logger.Info().Str("queue", cfg.JobQueue).Msg("jobs are delivered through the broker")
	}

	staticDir := ""
	if fileStore != nil {
		staticDir = fileStore.BasePath()
	}
	router := httpapi.NewRouter(app, staticDir)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Let in-flight generations reach a terminal status write.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelDrain()
	if err := lc.Wait(drainCtx); err != nil {
		logger.Error().Int("in_flight", lc.InFlight()).Msg("shutdown with jobs still in flight")
	}
	logger.Info().Msg("server stopped")
}
