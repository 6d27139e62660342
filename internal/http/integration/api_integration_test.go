package integration_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/carehub/internal/auth"
	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/domain/payment"
	"github.com/geocoder89/carehub/internal/domain/user"
	apphttp "github.com/geocoder89/carehub/internal/http"
	"github.com/geocoder89/carehub/internal/payments/stripegw"
	"github.com/geocoder89/carehub/internal/repo/memory"
	"github.com/geocoder89/carehub/internal/security"
	"github.com/geocoder89/carehub/internal/service/authflow"
	"github.com/geocoder89/carehub/internal/service/payments"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const webhookSecret = "whsec_integration"

type noopMailer struct{}

func (noopMailer) SendPasswordReset(context.Context, string, string, string, string) error {
	return nil
}

type harness struct {
	router   *gin.Engine
	users    *memory.UsersRepo
	payments *memory.PaymentsRepo
}

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		JWTAccessSecret:     "access-secret",
		JWTRefreshSecret:    "refresh-secret",
		JWTResetSecret:      "reset-secret",
		JWTAccessTTLMinutes: 15,
		JWTRefreshTTLDays:   1,
		JWTResetTTLMinutes:  5,
		BcryptCost:          bcrypt.MinCost,
		ResetLink:           "http://localhost:3000/reset-password",
		FrontendURL:         "http://localhost:3000",
		ScheduleSlotMinutes: 30,
	}
}

func setup(t *testing.T) harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := memory.NewUsersRepo()
	paymentsRepo := memory.NewPaymentsRepo()
	tokens := auth.NewManager(
		auth.Secrets{Access: cfg.JWTAccessSecret, Refresh: cfg.JWTRefreshSecret, Reset: cfg.JWTResetSecret},
		auth.TTLs{Access: cfg.AccessTTL(), Refresh: cfg.RefreshTTL(), Reset: cfg.ResetTTL()},
	)

	flow := authflow.NewService(users, tokens, noopMailer{}, authflow.Options{
		ResetLink:  cfg.ResetLink,
		BcryptCost: cfg.BcryptCost,
		Logger:     log,
		Revoker:    memory.NewRevokedTokens(),
	})

	gateway := stripegw.New("", webhookSecret, cfg.FrontendURL)

	router := apphttp.NewRouter(apphttp.Deps{
		Log:        log,
		Config:     cfg,
		Tokens:     tokens,
		UserLookup: users,
		Auth:       flow,
		Payments:   payments.NewService(paymentsRepo, gateway, nil, nil, log),
		Webhooks:   gateway,
	})

	return harness{router: router, users: users, payments: paymentsRepo}
}

func (h harness) seedUser(t *testing.T, email, password string, role user.Role) user.User {
	t.Helper()
	hash, err := security.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	u, err := h.users.Add(user.User{Email: email, PasswordHash: hash, Role: role})
	require.NoError(t, err)
	return u
}

func doRequest(router http.Handler, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	t.Fatalf("refreshToken cookie not found")
	return nil
}

func accessToken(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	require.NotEmpty(t, body.Data.AccessToken)
	return body.Data.AccessToken
}

func TestAuthLifecycle(t *testing.T) {
	h := setup(t)
	h.seedUser(t, "pat@example.com", "secret123", user.RolePatient)

	w := doRequest(h.router, http.MethodPost, "/api/v1/auth/login", `{"email":"pat@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(h.router, http.MethodPost, "/api/v1/auth/login", `{"email":"nobody@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(h.router, http.MethodPost, "/api/v1/auth/login", `{"email":"pat@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookie := refreshCookie(t, w)
	accessToken(t, w)

	w = doRequest(h.router, http.MethodPost, "/api/v1/auth/refresh-token", "", func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	access := accessToken(t, w)

	w = doRequest(h.router, http.MethodPost, "/api/v1/auth/change-password",
		`{"oldPassword":"secret123","newPassword":"secret456"}`,
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+access) })
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(h.router, http.MethodPost, "/api/v1/auth/logout", "", func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(h.router, http.MethodPost, "/api/v1/auth/refresh-token", "", func(r *http.Request) { r.AddCookie(cookie) })
	assert.Equal(t, http.StatusForbidden, w.Code, "revoked refresh token must be rejected")
}

func TestBlockedUserLosesAccess(t *testing.T) {
	h := setup(t)
	u := h.seedUser(t, "doc@example.com", "secret123", user.RoleDoctor)

	w := doRequest(h.router, http.MethodPost, "/api/v1/auth/login", `{"email":"doc@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	access := accessToken(t, w)
	cookie := refreshCookie(t, w)

	_, err := h.users.UpdateStatus(context.Background(), u.ID, user.StatusBlocked)
	require.NoError(t, err)

	w = doRequest(h.router, http.MethodPost, "/api/v1/auth/change-password",
		`{"oldPassword":"secret123","newPassword":"secret456"}`,
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+access) })
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(h.router, http.MethodPost, "/api/v1/auth/refresh-token", "", func(r *http.Request) { r.AddCookie(cookie) })
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireJSONOnAPI(t *testing.T) {
	h := setup(t)

	w := doRequest(h.router, http.MethodPost, "/api/v1/auth/login", "email=a", func(r *http.Request) {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func signedWebhook(t *testing.T, typ, object string) (string, string) {
	t.Helper()
	payload := fmt.Sprintf(`{"id":"evt_%d","object":"event","api_version":"2023-10-16","type":%q,"data":{"object":%s}}`,
		time.Now().UnixNano(), typ, object)

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return payload, fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestWebhookReconcilesOnce(t *testing.T) {
	h := setup(t)
	session := "cs_integration"
	p := h.payments.Add(payment.Payment{Amount: 5000, GatewayRef: &session})

	w := doRequest(h.router, http.MethodPost, "/webhook", `{"type":"checkout.session.completed"}`, func(r *http.Request) {
		r.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Webhook Error:")

	object := `{"id":"cs_integration","object":"checkout.session","payment_intent":"pi_1","metadata":{}}`
	for i := 0; i < 2; i++ {
		payload, sig := signedWebhook(t, "checkout.session.completed", object)
		w = doRequest(h.router, http.MethodPost, "/webhook", payload, func(r *http.Request) {
			r.Header.Set("Stripe-Signature", sig)
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"received":true}`, w.Body.String())
	}

	got, ok := h.payments.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, payment.StatusCompleted, got.Status)
	assert.Equal(t, payment.StatusCompleted, h.payments.AppointmentPaymentStatus(p.AppointmentID))

	// a late failure for a settled payment changes nothing
	payload, sig := signedWebhook(t, "checkout.session.expired", `{"id":"cs_integration","object":"checkout.session","metadata":{}}`)
	w = doRequest(h.router, http.MethodPost, "/webhook", payload, func(r *http.Request) {
		r.Header.Set("Stripe-Signature", sig)
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, _ = h.payments.Get(p.ID)
	assert.Equal(t, payment.StatusCompleted, got.Status)
}

func TestWebhookUnknownReferenceIsAcknowledged(t *testing.T) {
	h := setup(t)

	payload, sig := signedWebhook(t, "payment_intent.succeeded", `{"id":"pi_unknown","object":"payment_intent","metadata":{}}`)
	w := doRequest(h.router, http.MethodPost, "/webhook", payload, func(r *http.Request) {
		r.Header.Set("Stripe-Signature", sig)
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
