package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/carehub/internal/cache"
	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/domain/specialty"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/geocoder89/carehub/internal/http/handlers"
	"github.com/geocoder89/carehub/internal/http/middlewares"
	"github.com/geocoder89/carehub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// Deps collects what the router serves. Optional groups (nil) are not mounted.
type Deps struct {
	Log    *slog.Logger
	Config config.Config
	Prom   *observability.Prom
	Ready  []handlers.ReadinessCheck

	Tokens     middlewares.TokenVerifier
	UserLookup middlewares.UserLookup

	Auth         handlers.AuthFlow
	Users        handlers.UserService
	Specialties  handlers.SpecialtyStore
	Schedules    handlers.ScheduleStore
	Appointments handlers.AppointmentStore
	Payments     handlers.PaymentFlow
	Webhooks     handlers.EventParser
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("carehub-api"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(d.Config.CookieSecure))
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	health := handlers.NewHealthHandler(d.Ready...)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authMw := middlewares.NewAuthMiddleware(d.Tokens, d.UserLookup)
	authLimiter := middlewares.NewRateLimiter(10, time.Minute)

	// The gateway posts signed raw bodies; it must stay outside RequireJSON.
	if d.Payments != nil && d.Webhooks != nil {
		payments := handlers.NewPaymentsHandler(d.Payments, d.Webhooks, d.Log)
		r.POST("/webhook", payments.Webhook)
	}

	v1 := r.Group("/api/v1")
	v1.Use(middlewares.RequireJSON())

	admins := []user.Role{user.RoleSuperAdmin, user.RoleAdmin}

	if d.Auth != nil {
		ah := handlers.NewAuthHandler(d.Auth, handlers.CookieConfig{
			Secure: d.Config.CookieSecure,
			MaxAge: d.Config.RefreshTTL(),
		}, d.Log)

		a := v1.Group("/auth")
		a.POST("/login", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), ah.Login)
		a.POST("/refresh-token", ah.Refresh)
		a.POST("/logout", ah.Logout)
		a.POST("/forgot-password", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), ah.ForgotPassword)
		a.POST("/reset-password", ah.ResetPassword)
		a.POST("/change-password", authMw.RequireAuth(), ah.ChangePassword)
	}

	if d.Users != nil {
		uh := handlers.NewUsersHandler(d.Users)

		v1.GET("/doctors/search", uh.SearchDoctors)

		u := v1.Group("/users")
		u.POST("/create-patient", uh.CreatePatient)

		u.Use(authMw.RequireAuth())
		u.GET("/me", uh.Me)
		u.PATCH("/update-my-profile", uh.UpdateMyProfile)
		u.POST("/create-admin", authMw.RequireRoles(admins...), uh.CreateAdmin)
		u.POST("/create-doctor", authMw.RequireRoles(admins...), uh.CreateDoctor)
		u.GET("", authMw.RequireRoles(admins...), uh.List)
		u.PATCH("/:id/status", authMw.RequireRoles(admins...), uh.UpdateStatus)
	}

	if d.Specialties != nil {
		sh := handlers.NewSpecialtiesHandler(d.Specialties, cache.New[[]specialty.Specialty](5*time.Minute))

		s := v1.Group("/specialties")
		s.GET("", sh.List)
		s.GET("/:id", sh.GetByID)
		s.POST("", authMw.RequireAuth(), authMw.RequireRoles(admins...), sh.Create)
		s.PATCH("/:id", authMw.RequireAuth(), authMw.RequireRoles(admins...), sh.Update)
		s.DELETE("/:id", authMw.RequireAuth(), authMw.RequireRoles(admins...), sh.Delete)
	}

	if d.Schedules != nil {
		sch := handlers.NewSchedulesHandler(d.Schedules, d.Config.ScheduleSlotMinutes)

		s := v1.Group("/schedules")
		s.GET("", sch.List)
		s.GET("/:id", sch.GetByID)
		s.POST("", authMw.RequireAuth(), authMw.RequireRoles(admins...), sch.Create)
		s.DELETE("/:id", authMw.RequireAuth(), authMw.RequireRoles(admins...), sch.Delete)
	}

	if d.Appointments != nil {
		aph := handlers.NewAppointmentsHandler(d.Appointments)

		ap := v1.Group("/appointments", authMw.RequireAuth())
		ap.POST("", authMw.RequireRoles(user.RolePatient), aph.Create)
		ap.GET("/:id", aph.GetByID)
	}

	if d.Payments != nil {
		ph := handlers.NewPaymentsHandler(d.Payments, d.Webhooks, d.Log)

		p := v1.Group("/payments", authMw.RequireAuth())
		p.POST("/init-payment", authMw.RequireRoles(user.RolePatient), ph.CreateSession)
	}

	return r
}
