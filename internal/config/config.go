// config.go

// Environment variable loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all env configuration vars for the ContentlyAI backend.
type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string
	LogLevel    slog.Level

	// AppURL is the browser origin echoed in CORS headers.
	AppURL string

	// CookieDomain scopes auth cookies; empty means host-only cookies.
	CookieDomain string

	// Production toggles the Secure flag on auth cookies.
	Production bool

	// JWT signing secrets. Distinct secrets so a leaked access secret
	// cannot mint refresh tokens.
	AccessSecret  string
	RefreshSecret string

	// Token TTLs. Defaults: 15m access, 168h (7d) refresh.
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Groq content-generation API.
	GroqAPIKey  string
	GroqBaseURL string

	// Identity provider (Firebase-style OIDC issuer). Optional -- empty
	// ProjectID disables the bearer-token auth path.
	IDPProjectID string
	IDPIssuer    string

	// Outbound generation queue. Defaults: 2 concurrent, 1s spacing.
	QueueConcurrency int
	QueueDelay       time.Duration

	// Generation response cache TTL. Default 10m.
	GenCacheTTL time.Duration

	// Rate limit policy for login attempts per email.
	// Defaults: max=10, window=10m, lockout=15m.
	RateLoginEmailMax     int
	RateLoginEmailWindow  time.Duration
	RateLoginEmailLockout time.Duration
}

// LoadConfig reads environment variables and returns a validated Config.
// A .env file in the working directory is loaded first if present.
// Returns an error if any required variable is missing; the service must
// never start with placeholder secrets.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg.AccessSecret = os.Getenv("JWT_ACCESS_SECRET")
	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	cfg.RefreshSecret = os.Getenv("JWT_REFRESH_SECRET")
	if cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	if cfg.RefreshSecret == cfg.AccessSecret {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET must differ from JWT_ACCESS_SECRET")
	}

	cfg.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}

	cfg.GroqBaseURL = os.Getenv("GROQ_BASE_URL")
	if cfg.GroqBaseURL == "" {
		cfg.GroqBaseURL = "https://api.groq.com/openai/v1"
	}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.AppURL = os.Getenv("APP_URL")
	if cfg.AppURL == "" {
		cfg.AppURL = "http://localhost:3000"
	}

	cfg.CookieDomain = os.Getenv("COOKIE_DOMAIN")
	cfg.Production = os.Getenv("APP_ENV") == "production"

	// Parse log level, default to info
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	cfg.AccessTTL = envDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	cfg.RefreshTTL = envDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)

	// Identity provider -- optional. Issuer defaults to the Firebase-style
	// secure token issuer for the project.
	cfg.IDPProjectID = os.Getenv("IDP_PROJECT_ID")
	cfg.IDPIssuer = os.Getenv("IDP_ISSUER")
	if cfg.IDPIssuer == "" && cfg.IDPProjectID != "" {
		cfg.IDPIssuer = "https://securetoken.google.com/" + cfg.IDPProjectID
	}

	cfg.QueueConcurrency = envInt("GEN_QUEUE_CONCURRENCY", 2)
	cfg.QueueDelay = envDuration("GEN_QUEUE_DELAY", 1*time.Second)
	cfg.GenCacheTTL = envDuration("GEN_CACHE_TTL", 10*time.Minute)

	// Rate limit: login by email. Invalid values fall back to the default so
	// a misconfigured env doesn't silently disable rate limiting.
	cfg.RateLoginEmailMax = envInt("RATE_LOGIN_EMAIL_MAX", 10)
	cfg.RateLoginEmailWindow = envDuration("RATE_LOGIN_EMAIL_WINDOW", 10*time.Minute)
	cfg.RateLoginEmailLockout = envDuration("RATE_LOGIN_EMAIL_LOCKOUT", 15*time.Minute)

	return cfg, nil
}

// envInt reads an env var as int, returning def if missing or unparseable.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// envDuration reads an env var as time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
