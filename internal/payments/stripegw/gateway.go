// Package stripegw adapts Stripe Checkout and Stripe webhooks to the payment domain.
package stripegw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const currency = "usd"

var ErrNotConfigured = errors.New("payment gateway is not configured")

type Gateway struct {
	api           *client.API
	webhookSecret []byte
	frontendURL   string
}

func New(secretKey, webhookSecret, frontendURL string) *Gateway {
	g := &Gateway{
		webhookSecret: []byte(webhookSecret),
		frontendURL:   strings.TrimRight(frontendURL, "/"),
	}

	if secretKey != "" {
		g.api = &client.API{}
		g.api.Init(secretKey, nil)
	}

	return g
}

// CreateCheckoutSession opens a hosted card payment for one appointment. Amount is in
// whole dollars and is sent to Stripe in cents.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	if g.api == nil {
		return payment.CheckoutSession{}, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
					UnitAmount: stripe.Int64(req.Amount * 100),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.frontendURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(g.frontendURL + "/payment-failed"),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"appointmentId": req.AppointmentID,
				"paymentId":     req.PaymentID,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("appointmentId", req.AppointmentID)
	params.AddMetadata("paymentId", req.PaymentID)

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return payment.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	out := payment.CheckoutSession{ID: s.ID, URL: s.URL}
	if s.Customer != nil && s.Customer.ID != "" {
		id := s.Customer.ID
		out.Customer = &id
	}

	return out, nil
}
