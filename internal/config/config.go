package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	JWTAccessSecret     string
	JWTRefreshSecret    string
	JWTResetSecret      string
	JWTAccessTTLMinutes int
	JWTRefreshTTLDays   int
	JWTResetTTLMinutes  int
	BcryptCost          int
	ResetLink           string
	FrontendURL         string
	CookieSecure        bool
	CORSAllowedOrigins  []string
	StripeSecretKey     string
	StripeWebhookSecret string
	RedisURL            string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	ESURL               string
	ESUser              string
	ESPassword          string
	ESDoctorIndex       string
	SendGridAPIKey      string
	EmailSender         string
	OTelEndpoint        string
	OTelSampleRatio     float64
	SuperAdminEmail     string
	SuperAdminPassword  string
	SuperAdminName      string
	ScheduleSlotMinutes int
	AutoMigrate         bool
}

func Load() Config {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:                 env,
		Port:                getEnvInt("PORT", 8080),
		DBURL:               getEnv("DATABASE_URL", buildDBURL()),
		JWTAccessSecret:     getEnv("JWT_ACCESS_SECRET", "dev-access-secret"),
		JWTRefreshSecret:    getEnv("JWT_REFRESH_SECRET", "dev-refresh-secret"),
		JWTResetSecret:      getEnv("JWT_RESET_SECRET", "dev-reset-secret"),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 15),
		JWTRefreshTTLDays:   getEnvInt("JWT_REFRESH_TTL_DAYS", 30),
		JWTResetTTLMinutes:  getEnvInt("JWT_RESET_TTL_MINUTES", 5),
		BcryptCost:          getEnvInt("BCRYPT_COST", 12),
		ResetLink:           getEnv("RESET_LINK", "http://localhost:3000/reset-password"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		CookieSecure:        getEnvBool("COOKIE_SECURE", env == "prod"),
		CORSAllowedOrigins:  csv(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		RedisURL:            os.Getenv("REDIS_URL"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		ESURL:               os.Getenv("ES_URL"),
		ESUser:              os.Getenv("ES_USER"),
		ESPassword:          os.Getenv("ES_PASSWORD"),
		ESDoctorIndex:       getEnv("ES_DOCTOR_INDEX", "doctors"),
		SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		EmailSender:         getEnv("EMAIL_SENDER", "no-reply@carehub.local"),
		OTelEndpoint:        os.Getenv("OTEL_EXPORTER_ENDPOINT"),
		OTelSampleRatio:     getEnvFloat("OTEL_SAMPLE_RATIO", 1),
		SuperAdminEmail:     os.Getenv("SUPER_ADMIN_EMAIL"),
		SuperAdminPassword:  os.Getenv("SUPER_ADMIN_PASSWORD"),
		SuperAdminName:      getEnv("SUPER_ADMIN_NAME", "Super Admin"),
		AutoMigrate:         getEnvBool("AUTO_MIGRATE", true),
		ScheduleSlotMinutes: getEnvInt("SCHEDULE_SLOT_MINUTES", 30),
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func (c Config) ResetTTL() time.Duration {
	return time.Duration(c.JWTResetTTLMinutes) * time.Minute
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "carehub")
	pass := getEnv("DB_PASSWORD", "carehub")
	name := getEnv("DB_NAME", "carehub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s is not an integer, using %d\n", key, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s is not a number, using %g\n", key, fallback)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
