package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents worker configuration loaded from environment variables.
// Everything except the listen port is optional: without a database or Redis
// the status store degrades to in-memory, without a broker the API runs jobs
// in-process, and without a bucket endpoint media is kept on local disk or
// returned inline.
type Config struct {
	AppEnv string
	Port   string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL           string
	JobQueue          string
	WorkerConcurrency int

	StoragePath       string
	StorageBaseURL    string
	BucketEndpointURL string

	MaxInFlight int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		AMQPURL:           os.Getenv("AMQP_URL"),
		JobQueue:          getEnv("JOB_QUEUE", "generation.jobs"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
		StoragePath:       os.Getenv("STORAGE_PATH"),
		StorageBaseURL:    os.Getenv("STORAGE_BASE_URL"),
		BucketEndpointURL: os.Getenv("BUCKET_ENDPOINT_URL"),
		MaxInFlight:       getEnvInt("MAX_IN_FLIGHT", 0),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.StoragePath != "" && cfg.StorageBaseURL == "" {
		cfg.StorageBaseURL = fmt.Sprintf("http://localhost:%s/static", cfg.Port)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
