// Package payments applies verified gateway events to stored payments and opens
// checkout sessions for booked appointments.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/geocoder89/carehub/internal/observability"
)

type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeUnknownReference Outcome = "unknown_reference"
	OutcomeIgnored          Outcome = "ignored"
)

var (
	ErrNotFound  = errors.New("payment not found")
	ErrForbidden = errors.New("appointment belongs to another patient")
	ErrSettled   = errors.New("payment already settled")
)

type Store interface {
	ApplyTransition(ctx context.Context, t payment.Transition) (payment.TransitionResult, error)
	GetCheckout(ctx context.Context, appointmentID string) (payment.Checkout, error)
	AttachSession(ctx context.Context, paymentID, sessionID string, customer *string) error
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error)
}

type Receipts interface {
	SendPaymentReceipt(ctx context.Context, paymentID, appointmentID string) error
}

type Service struct {
	store    Store
	gateway  Gateway
	receipts Receipts
	prom     *observability.Prom
	log      *slog.Logger
}

// NewService wires the reconciler. receipts and prom may be nil.
func NewService(store Store, gateway Gateway, receipts Receipts, prom *observability.Prom, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, gateway: gateway, receipts: receipts, prom: prom, log: log}
}

// Reconcile applies one gateway event. Unhandled kinds, unknown references and repeat
// deliveries are not errors; only storage failures are returned so the gateway retries.
func (s *Service) Reconcile(ctx context.Context, ev payment.Event) (Outcome, error) {
	to, ok := ev.Kind.Target()
	if !ok {
		s.log.InfoContext(ctx, "payment.reconcile.ignored", "event_id", ev.ID, "type", ev.GatewayType)
		s.observe(ev, OutcomeIgnored)
		return OutcomeIgnored, nil
	}

	res, err := s.store.ApplyTransition(ctx, payment.Transition{
		Reference:        ev.Reference,
		To:               to,
		PaymentIntentRef: ev.PaymentIntentRef,
	})
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			s.log.WarnContext(ctx, "payment.reconcile.unknown_reference",
				"event_id", ev.ID, "type", ev.GatewayType, "reference", ev.Reference)
			s.observe(ev, OutcomeUnknownReference)
			return OutcomeUnknownReference, nil
		}
		s.prom.ObservePaymentEvent(ev.Kind.String(), "error")
		return "", fmt.Errorf("apply payment transition: %w", err)
	}

	if !res.Applied {
		s.log.InfoContext(ctx, "payment.reconcile.duplicate",
			"event_id", ev.ID, "payment_id", res.Payment.ID, "status", res.Payment.Status)
		s.observe(ev, OutcomeDuplicate)
		return OutcomeDuplicate, nil
	}

	s.log.InfoContext(ctx, "payment.reconcile.applied",
		"event_id", ev.ID, "type", ev.GatewayType,
		"payment_id", res.Payment.ID, "appointment_id", res.Payment.AppointmentID, "status", res.Payment.Status)
	s.observe(ev, OutcomeApplied)

	if res.Payment.Status == payment.StatusCompleted && s.receipts != nil {
		if err := s.receipts.SendPaymentReceipt(ctx, res.Payment.ID, res.Payment.AppointmentID); err != nil {
			s.log.ErrorContext(ctx, "payment.receipt.enqueue_failed", "payment_id", res.Payment.ID, "err", err)
		}
	}

	return OutcomeApplied, nil
}

func (s *Service) observe(ev payment.Event, o Outcome) {
	s.prom.ObservePaymentEvent(ev.Kind.String(), string(o))
}
