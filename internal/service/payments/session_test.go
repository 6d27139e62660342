package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/geocoder89/carehub/internal/repo/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	createFn func(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error)
	got      []payment.CheckoutRequest
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	f.got = append(f.got, req)
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return payment.CheckoutSession{ID: "cs_new", URL: "https://checkout.stripe.test/cs_new", Customer: strPtr("cus_1")}, nil
}

func TestCreateSession(t *testing.T) {
	repo := memory.NewPaymentsRepo()
	gw := &fakeGateway{}
	svc := NewService(repo, gw, nil, nil, nil)

	p := repo.Add(payment.Payment{Amount: 40})
	repo.SetPatientEmail(p.AppointmentID, "p@example.com")
	ctx := context.Background()

	url, err := svc.CreateSession(ctx, p.AppointmentID, "p@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_new", url)

	require.Len(t, gw.got, 1)
	assert.Equal(t, int64(40), gw.got[0].Amount)
	assert.Equal(t, "p@example.com", gw.got[0].CustomerEmail)

	got, _ := repo.Get(p.ID)
	require.NotNil(t, got.GatewayRef)
	assert.Equal(t, "cs_new", *got.GatewayRef)
	require.NotNil(t, got.GatewayCustomer)
	assert.Equal(t, "cus_1", *got.GatewayCustomer)

	// the stored session id is now what webhook events reconcile against
	out, err := svc.Reconcile(ctx, payment.Event{Kind: payment.KindSucceeded, Reference: "cs_new"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out)

	_, err = svc.CreateSession(ctx, p.AppointmentID, "p@example.com")
	assert.ErrorIs(t, err, ErrSettled)
}

func TestCreateSession_Errors(t *testing.T) {
	repo := memory.NewPaymentsRepo()
	boom := errors.New("stripe down")
	gw := &fakeGateway{createFn: func(context.Context, payment.CheckoutRequest) (payment.CheckoutSession, error) {
		return payment.CheckoutSession{}, boom
	}}
	svc := NewService(repo, gw, nil, nil, nil)

	p := repo.Add(payment.Payment{Amount: 40})
	repo.SetPatientEmail(p.AppointmentID, "p@example.com")
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "missing", "p@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateSession(ctx, p.AppointmentID, "someone-else@example.com")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateSession(ctx, p.AppointmentID, "p@example.com")
	assert.ErrorIs(t, err, boom)
}
