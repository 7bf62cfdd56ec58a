package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/contently-ai/contently/internal/auth"
	"github.com/contently-ai/contently/internal/chat"
	"github.com/contently-ai/contently/internal/config"
	"github.com/contently-ai/contently/internal/gencache"
	"github.com/contently-ai/contently/internal/idp"
	"github.com/contently-ai/contently/internal/llm"
	"github.com/contently-ai/contently/internal/queue"
	"github.com/contently-ai/contently/internal/store"
)

// Embeds the migration files INTO the go bin

//go:embed migrations/*.sql
var migrationsDir embed.FS

func main() {
	// Load config first so we can set log level
	cfg, err := config.LoadConfig()
	if err != nil {
		// Fallback logger before config is available
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	addSrc := cfg.LogLevel == slog.LevelDebug

	// Set up slog to output as json with configured level
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: addSrc,
	})))

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run() is a separate func so deferred closes always execute before os.Exit.
	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run holds all server logic and returns error instead of calling os.Exit,
// so deferred resource cleanup (ps.Close, rdb.Close) always runs.
// Shuts down when ctx is cancelled (signal handling is the caller's concern).
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	ps, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to set up postgres store: %w", err)
	}
	defer ps.Close()

	// Run database migrations
	migrationsFS, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access embedded migrations: %w", err)
	}
	if err := ps.Migrate(ctx, migrationsFS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create shared Redis client; all Redis structs share one connection pool.
	rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to set up redis client: %w", err)
	}
	defer rdb.Close()

	rs := store.NewRedisStore(rdb)
	rl := store.NewRedisRateLimiter(rdb)

	auth.LoginEmailPolicy = store.RateLimit{
		MaxAttempts: cfg.RateLoginEmailMax,
		Window:      cfg.RateLoginEmailWindow,
		LockoutTTL:  cfg.RateLoginEmailLockout,
	}

	ts := &auth.TokenService{
		AccessSecret:  []byte(cfg.AccessSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		CookieDomain:  cfg.CookieDomain,
		Secure:        cfg.Production,
	}

	// Bearer-token auth is optional; without a configured project the
	// provider path rejects everything and cookie sessions carry the app.
	var verifier idp.Verifier = idp.Disabled{}
	if cfg.IDPProjectID != "" {
		verifier, err = idp.NewOIDCVerifier(ctx, cfg.IDPIssuer, cfg.IDPProjectID)
		if err != nil {
			return fmt.Errorf("failed to set up identity provider verifier: %w", err)
		}
	}

	ah := auth.AuthHandler{PS: ps, DL: rs, RL: rl, TS: ts, IDP: verifier}

	// Generation pipeline: one queue and one cache per process, injected
	// into the chat handler.
	genQueue := queue.New(cfg.QueueConcurrency, cfg.QueueDelay)
	defer genQueue.Close()
	gen := &chat.Generator{
		LLM:   llm.NewClient(cfg.GroqAPIKey, cfg.GroqBaseURL),
		Queue: genQueue,
		Cache: gencache.New(rdb, cfg.GenCacheTTL),
	}
	ch := chat.ChatHandler{CS: ps, Gen: gen}

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{Handler: buildRouter(&ah, &ch, cfg.AppURL)}

	// Start server in a goroutine; run() continues past this.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("contently listening", "addr", ln.Addr().String())
		// Send error only if server stops for a reason other than explicit shutdown.
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	// Wait for server error or shutdown signal from ctx.
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown ! :)
	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// server.Shutdown:
	//  1. Stops accepting new conns
	//  2. Waits for all in-progress requests to finish and responses to be sent
	//  3. Returns nil when done or an error if the 30s timeout hits first
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// buildRouter wires all routes and middleware.
// Called from run() and from smoke tests.
func buildRouter(ah *auth.AuthHandler, ch *chat.ChatHandler, appURL string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(auth.CORS(appURL))

	r.Get("/health", ah.CheckHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", ah.Register)
		r.Post("/login", ah.Login)
		r.Post("/refresh", ah.Refresh)
		r.Post("/logout", ah.Logout)
		r.Get("/me", ah.Me)
	})

	// Authentication required routes
	r.Group(func(r chi.Router) {
		r.Use(ah.RequireAuth)
		r.Route("/api/conversations", func(r chi.Router) {
			r.Get("/", ch.ListConversations)
			r.Post("/", ch.CreateConversation)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", ch.GetConversation)
				r.Put("/", ch.UpdateConversation)
				r.Delete("/", ch.DeleteConversation)
				r.Get("/messages", ch.ListMessages)
				r.Post("/messages", ch.CreateMessage)
			})
		})
		r.Get("/api/user/settings", ch.GetSettings)
		r.Put("/api/user/settings", ch.UpdateSettings)
	})

	return r
}
