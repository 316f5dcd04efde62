// Package lifecycle owns the asynchronous job state machine: synchronous
// acceptance, supervised background execution, and status reporting.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"worker/internal/dispatch"
	"worker/internal/domain"
	"worker/internal/media"
	"worker/internal/schema"
	"worker/internal/store"
)

// Receipt is the synchronous response for an accepted job. Everything after
// acceptance is only observable through the status store.
type Receipt struct {
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
	FileUID  string          `json:"file_uid,omitempty"`
	TaskType domain.TaskType `json:"task_type"`
}

// Config tunes the lifecycle.
type Config struct {
	// MaxInFlight caps concurrently running jobs. Zero means unbounded,
	// which matches the original worker's observed behavior.
	MaxInFlight int
}

// Lifecycle accepts raw requests, runs them in supervised background
// goroutines, and guarantees every run ends in an explicit terminal status
// write. It never deduplicates or serializes jobs that share a
// (user_id, file_uid) pair; store writes are last-write-wins.
type Lifecycle struct {
	dispatcher *dispatch.Dispatcher
	persister  *media.Persister
	status     store.StatusStore
	logger     zerolog.Logger
	cfg        Config

	mu       sync.Mutex
	inflight map[string]domain.TaskType
	wg       sync.WaitGroup
}

// New wires a lifecycle. status must not be nil; pass a MemoryStore when no
// external store is configured.
func New(dispatcher *dispatch.Dispatcher, persister *media.Persister, status store.StatusStore, logger zerolog.Logger, cfg Config) *Lifecycle {
	return &Lifecycle{
		dispatcher: dispatcher,
		persister:  persister,
		status:     status,
		logger:     logger,
		cfg:        cfg,
		inflight:   make(map[string]domain.TaskType),
	}
}

// Submit classifies and validates a raw request, records the processing
// status, fires the background run, and returns immediately. Validation
// failures surface synchronously and never start a job. The processing write
// happens before Submit returns, so a caller polling right after acceptance
// already observes "processing".
func (l *Lifecycle) Submit(ctx context.Context, jobID string, raw map[string]any) (*Receipt, error) {
	job, validated, err := l.prepare(ctx, jobID, raw)
	if err != nil {
		return nil, err
	}

	l.wg.Add(1)
	go l.run(job, *validated)

	l.logger.Info().
		Str("job_id", job.ID).
		Str("task_type", string(job.Type)).
		Str("user_id", job.UserID).
		Str("file_uid", job.FileUID).
		Msg("lifecycle: job accepted")

	return &Receipt{
		Status:   "accepted",
		Message:  "Generation task accepted and processing",
		UserID:   job.UserID,
		FileUID:  job.FileUID,
		TaskType: job.Type,
	}, nil
}

// Process runs one job to its terminal state on the calling goroutine. Queue
// consumers use it so a delivery is only acked after the terminal status
// write. The returned error covers acceptance only; generation failures are
// recorded in the store, not returned.
func (l *Lifecycle) Process(ctx context.Context, jobID string, raw map[string]any) error {
	job, validated, err := l.prepare(ctx, jobID, raw)
	if err != nil {
		return err
	}
	l.wg.Add(1)
	l.run(job, *validated)
	return nil
}

// prepare validates the request, reserves an in-flight slot, and records the
// processing state.
func (l *Lifecycle) prepare(ctx context.Context, jobID string, raw map[string]any) (domain.Job, *schema.ValidatedRequest, error) {
	task := domain.Classify(raw)
	validated, err := schema.Validate(raw, task)
	if err != nil {
		return domain.Job{}, nil, err
	}

	if validated.UseCloudStorage {
		if validated.UserID == "" {
			return domain.Job{}, nil, &domain.MissingRequiredFieldError{Field: "user_id"}
		}
		if validated.FileUID == "" {
			return domain.Job{}, nil, &domain.MissingRequiredFieldError{Field: "file_uid"}
		}
	}

	job := domain.Job{
		ID:              jobID,
		UserID:          validated.UserID,
		FileUID:         validated.FileUID,
		Type:            task,
		UseCloudStorage: validated.UseCloudStorage,
		CreatedAt:       time.Now().UTC(),
	}
	// Local runs without storage routing still get tracked status records.
	if job.UserID == "" {
		job.UserID = "local"
	}
	if job.FileUID == "" {
		job.FileUID = jobID
	}

	if err := l.register(job); err != nil {
		return domain.Job{}, nil, err
	}

	if ok := l.status.UpdateStatus(ctx, job.UserID, job.FileUID, job.MediaType(), store.Fields{
		"status":     string(domain.JobStatusProcessing),
		"generated":  false,
		"error":      false,
		"task_type":  string(task),
		"job_id":     job.ID,
		"started_at": time.Now().UTC(),
	}); !ok {
		// best-effort store: the job proceeds anyway
		l.logger.Warn().Str("job_id", job.ID).Msg("lifecycle: processing status write failed")
	}

	return job, validated, nil
}

// run executes one job on a detached goroutine. Every exit path, panics
// included, ends in a terminal status write; nothing propagates out.
func (l *Lifecycle) run(job domain.Job, validated schema.ValidatedRequest) {
	ctx := context.Background()
	defer l.wg.Done()
	defer l.unregister(job.ID)
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Str("job_id", job.ID).Interface("panic", r).Msg("lifecycle: background run panicked")
			l.writeFailed(ctx, job, "Error", fmt.Sprintf("panic: %v", r))
		}
	}()

	out, err := l.dispatcher.Dispatch(ctx, &validated)
	if err != nil {
		l.logger.Error().Err(err).Str("job_id", job.ID).Msg("lifecycle: generation failed")
		l.writeFailed(ctx, job, domain.ErrorKind(err), err.Error())
		return
	}

	data := store.Fields{"seed": out.Seed}
	if job.Type == domain.TaskTextToVideo {
		locator, perr := l.persister.PersistVideo(ctx, job, out)
		if perr != nil {
			l.logger.Error().Err(perr).Str("job_id", job.ID).Msg("lifecycle: video persistence failed")
			l.writeFailed(ctx, job, domain.ErrorKind(perr), perr.Error())
			return
		}
		data["video_url"] = locator
		data["fps"] = out.FPS
		data["frame_count"] = out.FrameCount
		data["duration_seconds"] = out.DurationSeconds()
	} else {
		locators, perr := l.persister.PersistImages(ctx, job, out)
		if perr != nil {
			l.logger.Error().Err(perr).Str("job_id", job.ID).Msg("lifecycle: image persistence failed")
			l.writeFailed(ctx, job, domain.ErrorKind(perr), perr.Error())
			return
		}
		data["image_urls"] = locators
		if len(locators) > 0 {
			data["image_url"] = locators[0]
		}
		data["image_count"] = len(locators)
		if out.RefreshWorker {
			data["refresh_worker"] = true
		}
	}

	if ok := l.status.UpdateStatus(ctx, job.UserID, job.FileUID, job.MediaType(), store.Fields{
		"status":          string(domain.JobStatusCompleted),
		"generated":       true,
		"error":           false,
		"completed_at":    time.Now().UTC(),
		"generation_data": data,
	}); !ok {
		l.logger.Warn().Str("job_id", job.ID).Msg("lifecycle: completed status write failed")
	}
	l.logger.Info().Str("job_id", job.ID).Msg("lifecycle: job completed")
}

func (l *Lifecycle) writeFailed(ctx context.Context, job domain.Job, kind, message string) {
	if ok := l.status.UpdateStatus(ctx, job.UserID, job.FileUID, job.MediaType(), store.Fields{
		"status":        string(domain.JobStatusFailed),
		"generated":     false,
		"error":         true,
		"error_type":    kind,
		"error_message": message,
		"failed_at":     time.Now().UTC(),
	}); !ok {
		l.logger.Warn().Str("job_id", job.ID).Msg("lifecycle: failed status write failed")
	}
}

func (l *Lifecycle) register(job domain.Job) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cfg.MaxInFlight > 0 && len(l.inflight) >= l.cfg.MaxInFlight {
		return domain.ErrSaturated
	}
	l.inflight[job.ID] = job.Type
	return nil
}

func (l *Lifecycle) unregister(jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, jobID)
}

// InFlight reports the number of jobs currently running.
func (l *Lifecycle) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inflight)
}

// Wait blocks until every in-flight job finishes or ctx expires.
func (l *Lifecycle) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
