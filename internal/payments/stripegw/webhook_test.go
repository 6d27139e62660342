package stripegw

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/geocoder89/carehub/internal/domain/payment"
)

const testSecret = "whsec_test"

func sign(t *testing.T, secret string, payload []byte, at time.Time) string {
	t.Helper()

	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventJSON(typ, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2023-10-16","type":%q,"data":{"object":%s}}`, typ, object))
}

func TestParseEvent_Mapping(t *testing.T) {
	g := New("", testSecret, "http://localhost:3000")

	tests := []struct {
		name       string
		typ        string
		object     string
		wantKind   payment.Kind
		wantRef    string
		wantIntent string
		wantAppt   string
	}{
		{
			name:       "checkout completed with intent id",
			typ:        "checkout.session.completed",
			object:     `{"id":"cs_1","object":"checkout.session","payment_intent":"pi_1","metadata":{"appointmentId":"a1"}}`,
			wantKind:   payment.KindSucceeded,
			wantRef:    "cs_1",
			wantIntent: "pi_1",
			wantAppt:   "a1",
		},
		{
			name:       "checkout completed with expanded intent",
			typ:        "checkout.session.completed",
			object:     `{"id":"cs_2","object":"checkout.session","payment_intent":{"id":"pi_2"},"metadata":{}}`,
			wantKind:   payment.KindSucceeded,
			wantRef:    "cs_2",
			wantIntent: "pi_2",
		},
		{
			name:     "checkout expired",
			typ:      "checkout.session.expired",
			object:   `{"id":"cs_3","object":"checkout.session","payment_intent":null}`,
			wantKind: payment.KindFailed,
			wantRef:  "cs_3",
		},
		{
			name:     "payment intent succeeded",
			typ:      "payment_intent.succeeded",
			object:   `{"id":"pi_4","object":"payment_intent","metadata":{"appointmentId":"a4"}}`,
			wantKind: payment.KindSucceeded,
			wantRef:  "pi_4",
			wantAppt: "a4",
		},
		{
			name:     "payment intent failed",
			typ:      "payment_intent.payment_failed",
			object:   `{"id":"pi_5","object":"payment_intent"}`,
			wantKind: payment.KindFailed,
			wantRef:  "pi_5",
		},
		{
			name:     "unhandled type",
			typ:      "customer.created",
			object:   `{"id":"cus_1","object":"customer"}`,
			wantKind: payment.KindUnhandled,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			body := eventJSON(tt.typ, tt.object)

			ev, err := g.ParseEvent(body, sign(t, testSecret, body, time.Now()))
			if err != nil {
				t.Fatalf("ParseEvent: %v", err)
			}

			if ev.Kind != tt.wantKind {
				t.Fatalf("got kind %v, want %v", ev.Kind, tt.wantKind)
			}
			if ev.GatewayType != tt.typ {
				t.Fatalf("got type %q, want %q", ev.GatewayType, tt.typ)
			}
			if ev.Reference != tt.wantRef {
				t.Fatalf("got reference %q, want %q", ev.Reference, tt.wantRef)
			}
			if ev.PaymentIntentRef != tt.wantIntent {
				t.Fatalf("got intent %q, want %q", ev.PaymentIntentRef, tt.wantIntent)
			}
			if ev.AppointmentID != tt.wantAppt {
				t.Fatalf("got appointment %q, want %q", ev.AppointmentID, tt.wantAppt)
			}
		})
	}
}

func TestParseEvent_SignatureFailures(t *testing.T) {
	body := eventJSON("checkout.session.completed", `{"id":"cs_1","object":"checkout.session"}`)

	tests := []struct {
		name   string
		gw     *Gateway
		header string
	}{
		{name: "wrong secret", gw: New("", testSecret, ""), header: sign(t, "whsec_other", body, time.Now())},
		{name: "stale timestamp", gw: New("", testSecret, ""), header: sign(t, testSecret, body, time.Now().Add(-time.Hour))},
		{name: "missing header", gw: New("", testSecret, ""), header: ""},
		{name: "no secret configured", gw: New("", "", ""), header: sign(t, testSecret, body, time.Now())},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.gw.ParseEvent(body, tt.header)
			if !errors.Is(err, ErrSignatureInvalid) {
				t.Fatalf("got %v, want ErrSignatureInvalid", err)
			}
		})
	}
}

func TestParseEvent_TamperedBody(t *testing.T) {
	g := New("", testSecret, "")

	body := eventJSON("payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent"}`)
	header := sign(t, testSecret, body, time.Now())

	tampered := eventJSON("payment_intent.succeeded", `{"id":"pi_2","object":"payment_intent"}`)
	if _, err := g.ParseEvent(tampered, header); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("got %v, want ErrSignatureInvalid", err)
	}
}

func TestCreateCheckoutSession_NotConfigured(t *testing.T) {
	g := New("", testSecret, "http://localhost:3000")

	_, err := g.CreateCheckoutSession(t.Context(), payment.CheckoutRequest{AppointmentID: "a1", Amount: 10})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}
