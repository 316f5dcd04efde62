// Package handlers implements the HTTP surface of the generation worker.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"worker/internal/lifecycle"
	"worker/internal/queue"
	"worker/internal/store"
)

// JobPublisher enqueues accepted jobs for out-of-process execution.
type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string, input map[string]any) error
}

// BlobReader loads persisted media back by storage key.
type BlobReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

type App struct {
	Lifecycle *lifecycle.Lifecycle
	// Jobs, when set, switches POST /run from in-process execution to
	// queued delivery. The consumer side runs the same lifecycle.
	Jobs   JobPublisher
	Status store.StatusStore
	Reader store.Reader
	Blobs  BlobReader
	Logger zerolog.Logger
}

func NewApp(lc *lifecycle.Lifecycle, status store.StatusStore, reader store.Reader, logger zerolog.Logger) *App {
	return &App{Lifecycle: lc, Status: status, Reader: reader, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{"error": kind, "message": message})
}

var _ JobPublisher = (*queue.Publisher)(nil)
