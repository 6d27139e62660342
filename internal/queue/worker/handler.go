package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/carehub/internal/domain/job"
	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/jobs"
	"github.com/geocoder89/carehub/internal/notifications"
	"github.com/geocoder89/carehub/internal/search"
)

type ReceiptSource interface {
	GetReceipt(ctx context.Context, paymentID string) (payment.Receipt, error)
}

type DoctorSource interface {
	GetDoctorByEmail(ctx context.Context, email string) (user.Doctor, error)
}

type DoctorIndexer interface {
	IndexDoctor(ctx context.Context, d search.Doctor) error
}

// JobHandler routes claimed jobs to the collaborator that performs them.
type JobHandler struct {
	notifier notifications.Notifier
	receipts ReceiptSource
	doctors  DoctorSource
	index    DoctorIndexer
	log      *slog.Logger
}

func NewJobHandler(n notifications.Notifier, receipts ReceiptSource, doctors DoctorSource, index DoctorIndexer, log *slog.Logger) *JobHandler {
	if log == nil {
		log = slog.Default()
	}
	return &JobHandler{notifier: n, receipts: receipts, doctors: doctors, index: index, log: log}
}

func (h *JobHandler) Handle(ctx context.Context, j job.Job) error {
	t := jobs.JobType(j.Type)

	p, err := jobs.DecodePayload(t, j.Payload)
	if err != nil {
		return Permanent(err)
	}

	switch v := p.(type) {
	case jobs.SendPasswordResetPayload:
		return h.send(ctx, notifications.PasswordResetMessage(v.Email, v.ResetLink))

	case jobs.SendPaymentReceiptPayload:
		return h.sendReceipt(ctx, v)

	case jobs.IndexDoctorPayload:
		return h.indexDoctor(ctx, v)

	default:
		return Permanent(fmt.Errorf("%w: %s", jobs.ErrInvalidJobType, j.Type))
	}
}

func (h *JobHandler) sendReceipt(ctx context.Context, p jobs.SendPaymentReceiptPayload) error {
	rc, err := h.receipts.GetReceipt(ctx, p.PaymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return Permanent(err)
		}
		return fmt.Errorf("load receipt: %w", err)
	}

	if rc.Status != payment.StatusCompleted {
		h.log.WarnContext(ctx, "job.receipt_skipped", "payment_id", p.PaymentID, "status", rc.Status)
		return nil
	}

	msg := notifications.PaymentReceiptMessage(rc.PatientEmail, rc.PatientName, rc.DoctorName, rc.Amount, rc.SlotStart)
	return h.send(ctx, msg)
}

func (h *JobHandler) send(ctx context.Context, msg notifications.Message) error {
	err := h.notifier.Send(ctx, msg)
	if errors.Is(err, notifications.ErrRejected) {
		return Permanent(err)
	}
	return err
}

func (h *JobHandler) indexDoctor(ctx context.Context, p jobs.IndexDoctorPayload) error {
	d, err := h.doctors.GetDoctorByEmail(ctx, p.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) || errors.Is(err, user.ErrProfileMissing) {
			return Permanent(err)
		}
		return fmt.Errorf("load doctor: %w", err)
	}

	if err := h.index.IndexDoctor(ctx, search.DoctorFromProfile(d)); err != nil {
		if errors.Is(err, search.ErrDisabled) {
			return nil
		}
		return err
	}
	return nil
}
