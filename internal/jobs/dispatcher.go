package jobs

import (
	"context"
	"fmt"

	"github.com/geocoder89/carehub/internal/domain/job"
)

type Enqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

// Dispatcher turns domain requests for email and indexing work into jobs rows.
type Dispatcher struct {
	q Enqueuer
}

func NewDispatcher(q Enqueuer) *Dispatcher {
	return &Dispatcher{q: q}
}

// SendPasswordReset queues the reset email; tokenID keeps one job per issued token.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, userID, email, link, tokenID string) error {
	req, err := NewRequest(JobSendPasswordReset, SendPasswordResetPayload{
		UserID:    userID,
		Email:     email,
		ResetLink: link,
	}, "password_reset:"+tokenID)
	if err != nil {
		return err
	}

	if _, err := d.q.Create(ctx, req); err != nil {
		return fmt.Errorf("enqueue password reset: %w", err)
	}
	return nil
}

// SendPaymentReceipt queues at most one receipt per payment.
func (d *Dispatcher) SendPaymentReceipt(ctx context.Context, paymentID, appointmentID string) error {
	req, err := NewRequest(JobSendPaymentReceipt, SendPaymentReceiptPayload{
		PaymentID:     paymentID,
		AppointmentID: appointmentID,
	}, "payment_receipt:"+paymentID)
	if err != nil {
		return err
	}

	if _, err := d.q.Create(ctx, req); err != nil {
		return fmt.Errorf("enqueue payment receipt: %w", err)
	}
	return nil
}

func (d *Dispatcher) IndexDoctor(ctx context.Context, email string) error {
	req, err := NewRequest(JobIndexDoctor, IndexDoctorPayload{Email: email}, "")
	if err != nil {
		return err
	}

	if _, err := d.q.Create(ctx, req); err != nil {
		return fmt.Errorf("enqueue doctor index: %w", err)
	}
	return nil
}
