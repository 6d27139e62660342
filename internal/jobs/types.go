package jobs

import "errors"

type JobType string

const (
	JobSendPasswordReset  JobType = "send_password_reset"
	JobSendPaymentReceipt JobType = "send_payment_receipt"
	JobIndexDoctor        JobType = "index_doctor"
)

var (
	ErrInvalidJobType      = errors.New("invalid job type")
	ErrInvalidJobPayload   = errors.New("invalid job payload")
	ErrPayloadTypeMismatch = errors.New("payload type mismatch for job type")
)

// attempts per job type. A reset link outlives only a few retries, while a
// doctor missing from search is worth retrying until the cluster is back.
var maxAttempts = map[JobType]int{
	JobSendPasswordReset:  4,
	JobSendPaymentReceipt: 8,
	JobIndexDoctor:        12,
}

func (t JobType) IsValid() bool {
	_, ok := maxAttempts[t]
	return ok
}

func (t JobType) MaxAttempts() int {
	return maxAttempts[t]
}
