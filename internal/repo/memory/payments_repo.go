package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/google/uuid"
)

// PaymentsRepo mirrors the Postgres guarded transition under a single mutex.
type PaymentsRepo struct {
	mu           sync.Mutex
	items        map[string]payment.Payment
	appointments map[string]payment.Status
	patients     map[string]string
}

func NewPaymentsRepo() *PaymentsRepo {
	return &PaymentsRepo{
		items:        make(map[string]payment.Payment),
		appointments: make(map[string]payment.Status),
		patients:     make(map[string]string),
	}
}

// Add stores p and registers its appointment with a PENDING payment status.
func (r *PaymentsRepo) Add(p payment.Payment) payment.Payment {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.AppointmentID == "" {
		p.AppointmentID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = payment.StatusPending
	}
	p.CreatedAt, p.UpdatedAt = now, now

	r.mu.Lock()
	r.items[p.ID] = p
	r.appointments[p.AppointmentID] = p.Status
	r.mu.Unlock()

	return p
}

// SetPatientEmail records who booked the appointment, for checkout lookups.
func (r *PaymentsRepo) SetPatientEmail(appointmentID, email string) {
	r.mu.Lock()
	r.patients[appointmentID] = email
	r.mu.Unlock()
}

func (r *PaymentsRepo) GetCheckout(ctx context.Context, appointmentID string) (payment.Checkout, error) {
	p, err := r.GetByAppointmentID(ctx, appointmentID)
	if err != nil {
		return payment.Checkout{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return payment.Checkout{Payment: p, PatientEmail: r.patients[appointmentID], DoctorName: "Doctor"}, nil
}

func (r *PaymentsRepo) Get(id string) (payment.Payment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	return p, ok
}

// AppointmentPaymentStatus returns the status mirrored onto the appointment.
func (r *PaymentsRepo) AppointmentPaymentStatus(appointmentID string) payment.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appointments[appointmentID]
}

func (r *PaymentsRepo) GetByAppointmentID(_ context.Context, appointmentID string) (payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.items {
		if p.AppointmentID == appointmentID {
			return p, nil
		}
	}
	return payment.Payment{}, payment.ErrPaymentNotFound
}

func (r *PaymentsRepo) AttachSession(_ context.Context, paymentID, sessionID string, customer *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[paymentID]
	if !ok || p.Status != payment.StatusPending {
		return payment.ErrAlreadySettled
	}

	p.GatewayRef = &sessionID
	if customer != nil {
		p.GatewayCustomer = customer
	}
	p.UpdatedAt = time.Now().UTC()
	r.items[paymentID] = p
	return nil
}

func (r *PaymentsRepo) ApplyTransition(_ context.Context, t payment.Transition) (payment.TransitionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		current payment.Payment
		found   bool
	)
	for _, p := range r.items {
		if (p.GatewayRef != nil && *p.GatewayRef == t.Reference) ||
			(p.PaymentIntentRef != nil && *p.PaymentIntentRef == t.Reference) {
			current, found = p, true
			break
		}
	}
	if !found {
		return payment.TransitionResult{}, payment.ErrPaymentNotFound
	}

	if current.Status.IsTerminal() {
		return payment.TransitionResult{Payment: current}, nil
	}

	current.Status = t.To
	if t.PaymentIntentRef != "" {
		ref := t.PaymentIntentRef
		current.PaymentIntentRef = &ref
	}
	current.UpdatedAt = time.Now().UTC()

	r.items[current.ID] = current
	r.appointments[current.AppointmentID] = t.To

	return payment.TransitionResult{Payment: current, Applied: true}, nil
}
