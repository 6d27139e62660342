package jobs

import (
	"github.com/geocoder89/carehub/internal/domain/job"
)

// NewRequest validates and encodes payload into a create request for the jobs table.
func NewRequest(t JobType, payload any, idempotencyKey string) (job.CreateRequest, error) {
	b, err := EncodePayload(t, payload)
	if err != nil {
		return job.CreateRequest{}, err
	}

	req := job.CreateRequest{
		Type:        string(t),
		Payload:     b,
		MaxAttempts: t.MaxAttempts(),
	}
	if idempotencyKey != "" {
		req.IdempotencyKey = &idempotencyKey
	}
	return req, nil
}
