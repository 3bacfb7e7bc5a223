// cmd/api/main.go API server entry point
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beevik/etree"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/RynoXLI/annex/internal/auth"
	"github.com/RynoXLI/annex/internal/config"
	"github.com/RynoXLI/annex/internal/db"
	"github.com/RynoXLI/annex/internal/events"
	"github.com/RynoXLI/annex/internal/middleware"
	"github.com/RynoXLI/annex/internal/services"
	"github.com/RynoXLI/annex/internal/session"
	"github.com/RynoXLI/annex/internal/storage"
	"github.com/RynoXLI/annex/internal/transform"
	"github.com/RynoXLI/annex/migrations"
)

// pinger reports database reachability
type pinger interface {
	Ping(ctx context.Context) error
}

// natsStatus reports the message queue connection state
type natsStatus interface {
	IsConnected() bool
}

// licenseService is the business logic behind the license and file routes
type licenseService interface {
	AddLimitations(
		ctx context.Context,
		req services.LimitationsRequest,
		sess *session.Session,
	) (*etree.Document, error)
	DownloadFile(
		ctx context.Context,
		sess *session.Session,
		id, access, name string,
	) (*services.Download, error)
}

// App holds the dependencies of the HTTP handlers
type App struct {
	license  licenseService
	sessions func(http.Handler) http.Handler
	db       pinger
	nc       natsStatus
	logger   *slog.Logger
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Setup logger
	opts := &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	logger.Info("Starting API server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("Connected to PostgreSQL")

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
			return err
		}
		logger.Info("Database migrations applied")
	}

	// Connect to NATS and create JetStream context
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("unable to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("unable to create JetStream context: %w", err)
	}
	if err := events.EnsureStream(js, cfg.NATS.Stream); err != nil {
		return err
	}
	logger.Info("Connected to NATS with JetStream", "stream", cfg.NATS.Stream)

	// Initialize storage client
	files, err := storage.NewLocalStorage(cfg.Storage.DataDir, logger)
	if err != nil {
		return fmt.Errorf("unable to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "path", cfg.Storage.DataDir)

	engine := transform.NewEngine(
		cfg.Stylesheets.Dir,
		cfg.Stylesheets.CacheSize,
		cfg.Stylesheets.CacheTTL,
		logger,
	)
	defer engine.Close()

	queries := db.New(pool)
	license := services.NewLicenseService(
		queries,
		services.NewAccessManager(queries),
		files,
		engine,
		events.NewPublisher(js),
		services.Stylesheets{
			Brief:        cfg.Stylesheets.Brief,
			LicenseAnnex: cfg.Stylesheets.LicenseAnnex,
		},
		logger,
	)

	store := session.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval, logger)
	signer := auth.NewSigner(cfg.Server.SigningSecret)

	app := &App{
		license:  license,
		sessions: sessionChain(cfg, store, signer, logger),
		db:       pool,
		nc:       nc,
		logger:   logger,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newRouter(app, cfg),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sessionChain attaches the cookie session and, when configured, the bearer
// token user to a request
func sessionChain(
	cfg *config.Config,
	store *session.Store,
	signer *auth.Signer,
	logger *slog.Logger,
) func(http.Handler) http.Handler {
	sessions := middleware.Sessions(store, signer, middleware.SessionConfig{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	}, logger)
	bearer := middleware.BearerAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer, logger)
	return func(next http.Handler) http.Handler {
		return sessions(bearer(next))
	}
}
