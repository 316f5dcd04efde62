package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"worker/internal/domain"
	"worker/internal/schema"
	"worker/internal/store"
)

type runRequest struct {
	ID    string         `json:"id"`
	Input map[string]any `json:"input"`
}

// Run accepts a generation request. Default mode validates and executes
// in-process, answering once the job has been registered as processing.
// With a publisher configured it validates, records the queued state, and
// hands the job to the broker instead.
func (a *App) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Input == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "input is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if a.Jobs != nil {
		a.enqueue(w, r, req)
		return
	}

	receipt, err := a.Lifecycle.Submit(r.Context(), req.ID, req.Input)
	if err != nil {
		a.submitError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":        req.ID,
		"status":    receipt.Status,
		"message":   receipt.Message,
		"user_id":   receipt.UserID,
		"file_uid":  receipt.FileUID,
		"task_type": receipt.TaskType,
	})
}

func (a *App) enqueue(w http.ResponseWriter, r *http.Request, req runRequest) {
	task := domain.Classify(req.Input)
	validated, err := schema.Validate(req.Input, task)
	if err != nil {
		a.validationError(w, err)
		return
	}

	userID := validated.UserID
	if userID == "" {
		userID = "local"
	}
	fileUID := validated.FileUID
	if fileUID == "" {
		fileUID = req.ID
	}

	mediaType := task.MediaType()
	if ok := a.Status.UpdateStatus(r.Context(), userID, fileUID, mediaType, store.Fields{
		"status":    string(domain.JobStatusQueued),
		"generated": false,
		"error":     false,
		"task_type": string(task),
		"job_id":    req.ID,
		"queued_at": time.Now().UTC(),
	}); !ok {
		a.Logger.Warn().Str("job_id", req.ID).Msg("http: queued status write failed")
	}

	if err := a.Jobs.PublishJob(r.Context(), req.ID, req.Input); err != nil {
		a.Logger.Error().Err(err).Str("job_id", req.ID).Msg("http: publish failed")
		a.error(w, http.StatusServiceUnavailable, "queue_unavailable", "failed to enqueue job")
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"id":        req.ID,
		"status":    string(domain.JobStatusQueued),
		"user_id":   userID,
		"file_uid":  fileUID,
		"task_type": task,
	})
}

func (a *App) submitError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSaturated) {
		a.error(w, http.StatusTooManyRequests, "saturated", err.Error())
		return
	}
	a.validationError(w, err)
}

func (a *App) validationError(w http.ResponseWriter, err error) {
	kind := domain.ErrorKind(err)
	if kind == "Error" {
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	details := make([]map[string]string, 0, 4)
	for _, e := range schema.Errs(err) {
		details = append(details, map[string]string{
			"error_type":    domain.ErrorKind(e),
			"error_message": e.Error(),
		})
	}
	a.json(w, http.StatusBadRequest, map[string]any{
		"error":   kind,
		"message": err.Error(),
		"errors":  details,
	})
}
