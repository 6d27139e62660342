package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/carehub/internal/auth"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/gin-gonic/gin"
)

type fakeVerifier struct {
	verifyFn func(token string) (*auth.Claims, error)
}

func (f fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	return f.verifyFn(token)
}

type fakeLookup struct {
	getFn func(ctx context.Context, id string) (user.User, error)
}

func (f fakeLookup) GetByID(ctx context.Context, id string) (user.User, error) {
	return f.getFn(ctx, id)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(m *AuthMiddleware, roles ...user.Role) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())

	chain := []gin.HandlerFunc{m.RequireAuth()}
	if len(roles) > 0 {
		chain = append(chain, m.RequireRoles(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		id, _ := UserIDFromContext(c)
		role, _ := RoleFromContext(c)
		c.String(http.StatusOK, id+":"+string(role))
	})

	r.GET("/me", chain...)
	return r
}

func validVerifier() fakeVerifier {
	return fakeVerifier{verifyFn: func(token string) (*auth.Claims, error) {
		if token != "good" {
			return nil, auth.ErrInvalidSignature
		}
		return &auth.Claims{UserID: "u1", Email: "a@b.c", Role: "PATIENT"}, nil
	}}
}

func TestRequireAuth(t *testing.T) {
	active := fakeLookup{getFn: func(context.Context, string) (user.User, error) {
		return user.User{ID: "u1", Email: "a@b.c", Role: user.RolePatient, Status: user.StatusActive}, nil
	}}
	blocked := fakeLookup{getFn: func(context.Context, string) (user.User, error) {
		return user.User{ID: "u1", Email: "a@b.c", Role: user.RolePatient, Status: user.StatusBlocked}, nil
	}}
	missing := fakeLookup{getFn: func(context.Context, string) (user.User, error) {
		return user.User{}, user.ErrUserNotFound
	}}

	tests := []struct {
		name       string
		header     string
		lookup     UserLookup
		wantStatus int
		wantBody   string
	}{
		{name: "no header", header: "", lookup: active, wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad", lookup: active, wantStatus: http.StatusUnauthorized},
		{name: "bearer token", header: "Bearer good", lookup: active, wantStatus: http.StatusOK, wantBody: "u1:PATIENT"},
		{name: "raw token", header: "good", lookup: active, wantStatus: http.StatusOK, wantBody: "u1:PATIENT"},
		{name: "blocked user", header: "Bearer good", lookup: blocked, wantStatus: http.StatusUnauthorized},
		{name: "deleted user", header: "Bearer good", lookup: missing, wantStatus: http.StatusUnauthorized},
		{name: "no lookup", header: "Bearer good", lookup: nil, wantStatus: http.StatusOK, wantBody: "u1:PATIENT"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := newAuthRouter(NewAuthMiddleware(validVerifier(), tt.lookup))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if w.Code == http.StatusUnauthorized && !strings.Contains(w.Body.String(), `"success":false`) {
				t.Fatalf("expected error envelope, got %s", w.Body.String())
			}
		})
	}
}

func TestRequireAuth_RoleComesFromStore(t *testing.T) {
	promoted := fakeLookup{getFn: func(context.Context, string) (user.User, error) {
		return user.User{ID: "u1", Email: "a@b.c", Role: user.RoleAdmin, Status: user.StatusActive}, nil
	}}
	r := newAuthRouter(NewAuthMiddleware(validVerifier(), promoted), user.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	r := newAuthRouter(NewAuthMiddleware(validVerifier(), nil), user.RoleAdmin, user.RoleSuperAdmin)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/login", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := hit(); w.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}

	w := hit()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	// one token comes back every 30s
	if w.Header().Get("Retry-After") != "30" {
		t.Fatalf("Retry-After = %q, want 30", w.Header().Get("Retry-After"))
	}

	now = now.Add(31 * time.Second)
	if w := hit(); w.Code != http.StatusNoContent {
		t.Fatalf("after refill: status = %d", w.Code)
	}
	if w := hit(); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request after a single refill: status = %d", w.Code)
	}

	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, other)
	if w.Code != http.StatusNoContent {
		t.Fatalf("other client limited: %d", w.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name   string
		body   string
		ct     string
		status int
	}{
		{name: "json", body: `{}`, ct: "application/json; charset=utf-8", status: http.StatusNoContent},
		{name: "form", body: `a=b`, ct: "application/x-www-form-urlencoded", status: http.StatusUnsupportedMediaType},
		{name: "empty body", body: ``, ct: "", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
		if tt.ct != "" {
			req.Header.Set("Content-Type", tt.ct)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d", tt.name, w.Code, tt.status)
		}
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
		"":             "",
	}
	for in, want := range cases {
		if got := bearerToken(in); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), MaxBodyBytes(16))
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "fits", body: `{"a":1}`, want: http.StatusNoContent},
		{name: "declared too large", body: `{"a":"0123456789abcdef"}`, want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(tt.body))
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	t.Run("request id stored on the request context", func(t *testing.T) {
		r := gin.New()
		r.Use(RequestID())
		r.GET("/id", func(c *gin.Context) {
			id, _ := observability.RequestIDFrom(c.Request.Context())
			c.String(http.StatusOK, id)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set("X-Request-Id", "abc-123")
		r.ServeHTTP(w, req)

		if w.Body.String() != "abc-123" {
			t.Fatalf("request id = %q", w.Body.String())
		}
	})
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(true), CORSMiddleware([]string{"https://app.carehub.test/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed bool
	}{
		{name: "allowed simple request", method: http.MethodGet, origin: "https://app.carehub.test", wantStatus: http.StatusNoContent, wantAllowed: true},
		{name: "allowed preflight", method: http.MethodOptions, origin: "https://app.carehub.test", preflight: true, wantStatus: http.StatusNoContent, wantAllowed: true},
		{name: "foreign preflight", method: http.MethodOptions, origin: "https://evil.test", preflight: true, wantStatus: http.StatusForbidden},
		{name: "foreign simple request passes without headers", method: http.MethodGet, origin: "https://evil.test", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin") == tt.origin; got != tt.wantAllowed {
				t.Fatalf("allow-origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
			}
			if tt.wantStatus != http.StatusForbidden && w.Header().Get("Strict-Transport-Security") == "" {
				t.Fatalf("hsts header missing")
			}
		})
	}
}
