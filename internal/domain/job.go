package domain

import "time"

// JobStatus enumerates job lifecycle states. Transitions are forward only:
// queued -> processing -> completed | failed.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is the ephemeral in-process handle for one accepted generation request.
// All durable state lives in the status store keyed by (UserID, FileUID); the
// Job value is discarded once the background run reaches a terminal status.
type Job struct {
	ID              string
	UserID          string
	FileUID         string
	Type            TaskType
	UseCloudStorage bool
	CreatedAt       time.Time
}

// MediaType returns the collection the job's output is tracked under.
func (j Job) MediaType() string {
	return j.Type.MediaType()
}
