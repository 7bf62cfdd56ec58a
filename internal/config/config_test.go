package config

import (
	"log/slog"
	"testing"
	"time"
)

// --- LoadConfig ---

func TestLoadConfig(t *testing.T) {
	// Helper sets the minimum required env vars for a valid config
	setRequired := func(t *testing.T) {
		t.Helper()
		t.Setenv("DATABASE_URL", "postgres://localhost/contently")
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("JWT_ACCESS_SECRET", "access-secret")
		t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
		t.Setenv("GROQ_API_KEY", "gsk_test")
	}

	t.Run("returns valid config with all required vars", func(t *testing.T) {
		setRequired(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.DatabaseURL != "postgres://localhost/contently" {
			t.Errorf("DatabaseURL: expected %q, got %q", "postgres://localhost/contently", cfg.DatabaseURL)
		}
		if cfg.RedisURL != "redis://localhost:6379" {
			t.Errorf("RedisURL: expected %q, got %q", "redis://localhost:6379", cfg.RedisURL)
		}
		if cfg.GroqAPIKey != "gsk_test" {
			t.Errorf("GroqAPIKey: expected %q, got %q", "gsk_test", cfg.GroqAPIKey)
		}
	})

	t.Run("errors when DATABASE_URL is missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DATABASE_URL", "")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing DATABASE_URL, got nil")
		}
	})

	t.Run("errors when REDIS_URL is missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("REDIS_URL", "")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing REDIS_URL, got nil")
		}
	})

	t.Run("errors when signing secrets are missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("JWT_ACCESS_SECRET", "")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing JWT_ACCESS_SECRET, got nil")
		}
	})

	t.Run("errors when both signing secrets are identical", func(t *testing.T) {
		setRequired(t)
		t.Setenv("JWT_REFRESH_SECRET", "access-secret")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for identical signing secrets, got nil")
		}
	})

	t.Run("errors when GROQ_API_KEY is missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("GROQ_API_KEY", "")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing GROQ_API_KEY, got nil")
		}
	})

	t.Run("defaults PORT to 8080", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PORT", "")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Port: expected %q, got %q", "8080", cfg.Port)
		}
	})

	t.Run("defaults token TTLs", func(t *testing.T) {
		setRequired(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.AccessTTL != 15*time.Minute {
			t.Errorf("AccessTTL: expected 15m, got %v", cfg.AccessTTL)
		}
		if cfg.RefreshTTL != 7*24*time.Hour {
			t.Errorf("RefreshTTL: expected 168h, got %v", cfg.RefreshTTL)
		}
	})

	t.Run("overrides token TTLs from env", func(t *testing.T) {
		setRequired(t)
		t.Setenv("ACCESS_TOKEN_TTL", "5m")
		t.Setenv("REFRESH_TOKEN_TTL", "48h")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.AccessTTL != 5*time.Minute {
			t.Errorf("AccessTTL: expected 5m, got %v", cfg.AccessTTL)
		}
		if cfg.RefreshTTL != 48*time.Hour {
			t.Errorf("RefreshTTL: expected 48h, got %v", cfg.RefreshTTL)
		}
	})

	t.Run("invalid duration falls back to default", func(t *testing.T) {
		setRequired(t)
		t.Setenv("GEN_QUEUE_DELAY", "not-a-duration")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.QueueDelay != 1*time.Second {
			t.Errorf("QueueDelay: expected 1s, got %v", cfg.QueueDelay)
		}
	})

	t.Run("derives IDP issuer from project id", func(t *testing.T) {
		setRequired(t)
		t.Setenv("IDP_PROJECT_ID", "contently-prod")
		t.Setenv("IDP_ISSUER", "")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		want := "https://securetoken.google.com/contently-prod"
		if cfg.IDPIssuer != want {
			t.Errorf("IDPIssuer: expected %q, got %q", want, cfg.IDPIssuer)
		}
	})

	t.Run("parses log level", func(t *testing.T) {
		setRequired(t)
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Errorf("LogLevel: expected debug, got %v", cfg.LogLevel)
		}
	})

	t.Run("queue defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.QueueConcurrency != 2 {
			t.Errorf("QueueConcurrency: expected 2, got %d", cfg.QueueConcurrency)
		}
		if cfg.QueueDelay != time.Second {
			t.Errorf("QueueDelay: expected 1s, got %v", cfg.QueueDelay)
		}
		if cfg.GenCacheTTL != 10*time.Minute {
			t.Errorf("GenCacheTTL: expected 10m, got %v", cfg.GenCacheTTL)
		}
	})
}
