package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/geocoder89/carehub/internal/domain/job"
	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/jobs"
	"github.com/geocoder89/carehub/internal/notifications"
	"github.com/geocoder89/carehub/internal/search"
)

type fakeNotifier struct {
	sent []notifications.Message
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, msg notifications.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeReceipts struct {
	getFn func(ctx context.Context, id string) (payment.Receipt, error)
}

func (f fakeReceipts) GetReceipt(ctx context.Context, id string) (payment.Receipt, error) {
	return f.getFn(ctx, id)
}

type fakeDoctors struct {
	getFn func(ctx context.Context, email string) (user.Doctor, error)
}

func (f fakeDoctors) GetDoctorByEmail(ctx context.Context, email string) (user.Doctor, error) {
	return f.getFn(ctx, email)
}

type fakeIndex struct {
	indexed []search.Doctor
	err     error
}

func (f *fakeIndex) IndexDoctor(_ context.Context, d search.Doctor) error {
	f.indexed = append(f.indexed, d)
	return f.err
}

func mustJob(t *testing.T, typ jobs.JobType, payload any) job.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return job.Job{ID: "j1", Type: string(typ), Payload: raw, MaxAttempts: 5}
}

func TestJobHandler_PasswordReset(t *testing.T) {
	n := &fakeNotifier{}
	h := NewJobHandler(n, nil, nil, nil, quietLogger())

	j := mustJob(t, jobs.JobSendPasswordReset, jobs.SendPasswordResetPayload{
		UserID: "u1", Email: "doc@x.com", ResetLink: "https://app/reset?id=u1&token=t",
	})

	if err := h.Handle(context.Background(), j); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(n.sent) != 1 || n.sent[0].To != "doc@x.com" {
		t.Fatalf("unexpected sends: %+v", n.sent)
	}
}

func TestJobHandler_NotifierErrors(t *testing.T) {
	j := mustJob(t, jobs.JobSendPasswordReset, jobs.SendPasswordResetPayload{
		UserID: "u1", Email: "nobody@invalid", ResetLink: "https://app/reset?id=u1&token=t",
	})

	rejected := &fakeNotifier{err: fmt.Errorf("%w: sendgrid status 400", notifications.ErrRejected)}
	err := NewJobHandler(rejected, nil, nil, nil, quietLogger()).Handle(context.Background(), j)
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("rejected message should fail permanently, got %v", err)
	}

	down := &fakeNotifier{err: notifications.ErrCircuitOpen}
	err = NewJobHandler(down, nil, nil, nil, quietLogger()).Handle(context.Background(), j)
	if err == nil || errors.Is(err, ErrPermanent) {
		t.Fatalf("open circuit should be retried, got %v", err)
	}
}

func TestJobHandler_PaymentReceipt(t *testing.T) {
	slot := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		receipt       payment.Receipt
		getErr        error
		wantSent      int
		wantPermanent bool
		wantErr       bool
	}{
		{
			name:     "completed payment sends receipt",
			receipt:  payment.Receipt{PaymentID: "p1", Status: payment.StatusCompleted, PatientEmail: "pat@x.com", Amount: 80, SlotStart: slot},
			wantSent: 1,
		},
		{
			name:    "failed payment is skipped",
			receipt: payment.Receipt{PaymentID: "p1", Status: payment.StatusFailed},
		},
		{
			name:          "missing payment is permanent",
			getErr:        payment.ErrPaymentNotFound,
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:    "db error is retried",
			getErr:  errors.New("conn reset"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{}
			receipts := fakeReceipts{getFn: func(context.Context, string) (payment.Receipt, error) {
				return tt.receipt, tt.getErr
			}}
			h := NewJobHandler(n, receipts, nil, nil, quietLogger())

			err := h.Handle(context.Background(), mustJob(t, jobs.JobSendPaymentReceipt, jobs.SendPaymentReceiptPayload{PaymentID: "p1", AppointmentID: "a1"}))

			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrPermanent) != tt.wantPermanent {
				t.Fatalf("permanent = %v, want %v", errors.Is(err, ErrPermanent), tt.wantPermanent)
			}
			if len(n.sent) != tt.wantSent {
				t.Fatalf("sent %d, want %d", len(n.sent), tt.wantSent)
			}
		})
	}
}

func TestJobHandler_IndexDoctor(t *testing.T) {
	idx := &fakeIndex{}
	doctors := fakeDoctors{getFn: func(_ context.Context, email string) (user.Doctor, error) {
		return user.Doctor{ID: "d1", Email: email, Name: "Ada"}, nil
	}}
	h := NewJobHandler(&fakeNotifier{}, nil, doctors, idx, quietLogger())

	if err := h.Handle(context.Background(), mustJob(t, jobs.JobIndexDoctor, jobs.IndexDoctorPayload{Email: "ada@x.com"})); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(idx.indexed) != 1 || idx.indexed[0].ID != "d1" {
		t.Fatalf("unexpected index writes: %+v", idx.indexed)
	}

	idx.err = search.ErrDisabled
	if err := h.Handle(context.Background(), mustJob(t, jobs.JobIndexDoctor, jobs.IndexDoctorPayload{Email: "ada@x.com"})); err != nil {
		t.Fatalf("disabled index should not fail the job: %v", err)
	}
}

func TestJobHandler_BadPayloadIsPermanent(t *testing.T) {
	h := NewJobHandler(&fakeNotifier{}, nil, nil, nil, quietLogger())

	tests := []job.Job{
		{ID: "x", Type: "unknown_type", Payload: json.RawMessage(`{}`)},
		{ID: "y", Type: string(jobs.JobSendPasswordReset), Payload: json.RawMessage(`{"email":""}`)},
		{ID: "z", Type: string(jobs.JobSendPaymentReceipt), Payload: json.RawMessage(`not json`)},
	}

	for _, j := range tests {
		if err := h.Handle(context.Background(), j); !errors.Is(err, ErrPermanent) {
			t.Fatalf("job %s: got %v, want permanent", j.ID, err)
		}
	}
}
