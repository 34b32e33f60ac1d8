package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job.
type JobType string

const (
	// JobTypeTraceExport carries one LLM invocation run record destined for
	// the external trace collector.
	JobTypeTraceExport JobType = "trace_export"
)

// Job is one unit of background work.
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}

// NewJob creates a job with the default retry budget.
func NewJob(jobType JobType, payload json.RawMessage) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payload,
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}
}

// CanRetry checks if the job can be retried.
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count.
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
