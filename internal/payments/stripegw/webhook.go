package stripegw

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrSignatureInvalid = errors.New("webhook signature verification failed")

// event types mapped onto payment.Kind; anything else is KindUnhandled
var eventKinds = map[string]payment.Kind{
	"checkout.session.completed":               payment.KindSucceeded,
	"checkout.session.async_payment_succeeded": payment.KindSucceeded,
	"checkout.session.async_payment_failed":    payment.KindFailed,
	"checkout.session.expired":                 payment.KindFailed,
	"payment_intent.succeeded":                 payment.KindSucceeded,
	"payment_intent.payment_failed":            payment.KindFailed,
}

type checkoutObject struct {
	ID            string            `json:"id"`
	PaymentIntent json.RawMessage   `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type intentObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// ParseEvent verifies the Stripe-Signature header over the raw body and reduces the
// event to a payment.Event.
func (g *Gateway) ParseEvent(payload []byte, signature string) (payment.Event, error) {
	if len(g.webhookSecret) == 0 {
		return payment.Event{}, fmt.Errorf("%w: webhook secret not set", ErrSignatureInvalid)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, string(g.webhookSecret),
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return payment.Event{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	out := payment.Event{
		ID:          ev.ID,
		GatewayType: string(ev.Type),
		Kind:        eventKinds[string(ev.Type)],
	}

	if out.Kind == payment.KindUnhandled || ev.Data == nil {
		out.Kind = payment.KindUnhandled
		return out, nil
	}

	switch {
	case strings.HasPrefix(out.GatewayType, "checkout.session."):
		var obj checkoutObject
		if err := json.Unmarshal(ev.Data.Raw, &obj); err != nil {
			return payment.Event{}, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Reference = obj.ID
		out.AppointmentID = obj.Metadata["appointmentId"]
		out.PaymentIntentRef = intentID(obj.PaymentIntent)

	default:
		var obj intentObject
		if err := json.Unmarshal(ev.Data.Raw, &obj); err != nil {
			return payment.Event{}, fmt.Errorf("decode payment intent: %w", err)
		}
		out.Reference = obj.ID
		out.AppointmentID = obj.Metadata["appointmentId"]
	}

	if out.Reference == "" {
		return payment.Event{}, fmt.Errorf("event %s has no object id", ev.ID)
	}

	return out, nil
}

// intentID reads payment_intent, which Stripe sends either as an id or as an expanded object.
func intentID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}

	var obj intentObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
