package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/carehub/internal/domain/payment"
)

// CreateSession opens a hosted checkout for the caller's appointment and returns its URL.
func (s *Service) CreateSession(ctx context.Context, appointmentID, patientEmail string) (string, error) {
	c, err := s.store.GetCheckout(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("load checkout: %w", err)
	}

	if patientEmail != "" && c.PatientEmail != patientEmail {
		return "", ErrForbidden
	}

	if c.Payment.Status.IsTerminal() {
		return "", ErrSettled
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		AppointmentID: appointmentID,
		PaymentID:     c.Payment.ID,
		Amount:        c.Payment.Amount,
		CustomerEmail: c.PatientEmail,
		ProductName:   "Appointment with Dr. " + c.DoctorName,
	})
	if err != nil {
		return "", err
	}

	if err := s.store.AttachSession(ctx, c.Payment.ID, sess.ID, sess.Customer); err != nil {
		if errors.Is(err, payment.ErrAlreadySettled) {
			return "", ErrSettled
		}
		return "", fmt.Errorf("store checkout session: %w", err)
	}

	s.log.InfoContext(ctx, "payment.session.created",
		"appointment_id", appointmentID, "payment_id", c.Payment.ID, "session_id", sess.ID)

	return sess.URL, nil
}
