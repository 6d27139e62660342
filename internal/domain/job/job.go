package job

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status values are stored lowercase in jobs.status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

const DefaultMaxAttempts = 10

var ErrJobNotFound = errors.New("job not found")

// Job is one row of the background queue. Attempts counts finished runs; the
// run in progress is not included until the worker releases the job.
type Job struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	Status         Status          `json:"status"`
	Attempts       int             `json:"attempts"`
	MaxAttempts    int             `json:"maxAttempts"`
	RunAt          time.Time       `json:"runAt"`
	LockedAt       *time.Time      `json:"lockedAt,omitempty"`
	LockedBy       *string         `json:"lockedBy,omitempty"`
	LastError      *string         `json:"lastError,omitempty"`
	IdempotencyKey *string         `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// LastAttempt reports whether the run in progress is the final one allowed.
func (j Job) LastAttempt() bool {
	return j.Attempts+1 >= j.MaxAttempts
}

type CreateRequest struct {
	Type           string
	Payload        json.RawMessage
	RunAt          time.Time
	MaxAttempts    int
	IdempotencyKey *string
}

// New builds a pending job ready to run at req.RunAt, or immediately.
func New(req CreateRequest) Job {
	now := time.Now().UTC()

	j := Job{
		ID:             uuid.NewString(),
		Type:           req.Type,
		Payload:        req.Payload,
		Status:         StatusPending,
		MaxAttempts:    req.MaxAttempts,
		RunAt:          req.RunAt.UTC(),
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = DefaultMaxAttempts
	}
	if req.RunAt.IsZero() {
		j.RunAt = now
	}
	return j
}
