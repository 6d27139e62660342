package payment

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// IsTerminal reports whether no further transition may be applied.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrAlreadySettled  = errors.New("payment already settled")
)

type Payment struct {
	ID               string    `json:"id"`
	AppointmentID    string    `json:"appointmentId"`
	Amount           int64     `json:"amount"`
	Status           Status    `json:"status"`
	GatewayRef       *string   `json:"gatewayRef,omitempty"`
	PaymentIntentRef *string   `json:"paymentIntentRef,omitempty"`
	GatewayCustomer  *string   `json:"gatewayCustomer,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Transition is the write applied for one gateway event.
type Transition struct {
	Reference        string
	To               Status
	PaymentIntentRef string
}

// TransitionResult reports what a guarded transition did.
type TransitionResult struct {
	Payment Payment
	Applied bool
}

// Receipt is the joined view a payment confirmation email is built from.
type Receipt struct {
	PaymentID     string    `json:"paymentId"`
	AppointmentID string    `json:"appointmentId"`
	Amount        int64     `json:"amount"`
	Status        Status    `json:"status"`
	PatientEmail  string    `json:"patientEmail"`
	PatientName   string    `json:"patientName"`
	DoctorName    string    `json:"doctorName"`
	SlotStart     time.Time `json:"slotStart"`
}

// Checkout is what is needed to open a hosted payment page for an appointment.
type Checkout struct {
	Payment      Payment
	PatientEmail string
	DoctorName   string
}

type CheckoutRequest struct {
	AppointmentID string
	PaymentID     string
	Amount        int64
	CustomerEmail string
	ProductName   string
}

type CheckoutSession struct {
	ID       string
	URL      string
	Customer *string
}
