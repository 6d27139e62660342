package appointment

import (
	"errors"
	"time"

	"github.com/geocoder89/carehub/internal/domain/payment"
)

type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "INPROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCanceled   Status = "CANCELED"
)

var (
	ErrNotFound     = errors.New("appointment not found")
	ErrSlotTaken    = errors.New("schedule slot already booked for this doctor")
	ErrDoctorOrSlot = errors.New("doctor or schedule not found")
)

type Appointment struct {
	ID             string         `json:"id"`
	PatientID      string         `json:"patientId"`
	DoctorID       string         `json:"doctorId"`
	ScheduleID     string         `json:"scheduleId"`
	VideoCallingID string         `json:"videoCallingId"`
	Status         Status         `json:"status"`
	PaymentStatus  payment.Status `json:"paymentStatus"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type CreateRequest struct {
	DoctorID   string `json:"doctorId" binding:"required,uuid"`
	ScheduleID string `json:"scheduleId" binding:"required,uuid"`
}

// WithPayment is the booking result returned to the patient. The participant
// emails are loaded for access checks and never serialized.
type WithPayment struct {
	Appointment
	Payment payment.Payment `json:"payment"`

	PatientEmail string `json:"-"`
	DoctorEmail  string `json:"-"`
}

// Involves reports whether email belongs to the booked patient or doctor.
func (a WithPayment) Involves(email string) bool {
	return email != "" && (email == a.PatientEmail || email == a.DoctorEmail)
}
