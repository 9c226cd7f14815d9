// huddle serves the chat app's page routes and JSON API.
// Usage: go run ./cmd/huddle --config configs/huddle.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/huddle/internal/auth"
	"github.com/rickgao/huddle/internal/config"
	"github.com/rickgao/huddle/internal/database"
	"github.com/rickgao/huddle/internal/identity"
	"github.com/rickgao/huddle/internal/profile"
	"github.com/rickgao/huddle/internal/store"
	"github.com/rickgao/huddle/internal/version"
	"github.com/rickgao/huddle/internal/web"
)

func main() {
	configPath := flag.String("config", "configs/huddle.example.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With("instance_id", cfg.Instance.ID)
	slog.SetDefault(logger)

	logger.Info("starting huddle",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("huddle failed", "error", err)
		os.Exit(1)
	}

	logger.Info("huddle stopped")
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	st, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	verifier, err := auth.LoadVerifier(cfg.Identity.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("load session verifier: %w", err)
	}

	users := identity.NewClient(
		cfg.Identity.APIURL,
		cfg.Identity.SecretKey,
		identity.WithLogger(logger),
		identity.WithTimeout(cfg.Identity.Timeout),
		identity.WithRetries(cfg.Identity.MaxRetries, identity.DefaultRetryBackoff),
	)

	profiles := profile.NewResolver(verifier, users, st, cfg.Identity.SessionCookie, logger)
	handler := web.NewHandler(web.Config{SignInURL: cfg.Identity.SignInURL}, profiles, st, logger)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:     handler.Routes(),
		ReadTimeout: cfg.HTTP.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"port", cfg.HTTP.Port,
			"site_url", cfg.Site.URL,
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore connects to the configured database driver.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		logger.Info("opening sqlite database", "path", cfg.SQLite.Path)
		db, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store.NewSQLite(db, logger), nil

	default:
		logger.Info("connecting to database",
			"host", cfg.Postgres.Host,
			"port", cfg.Postgres.Port,
			"database", cfg.Postgres.Name,
		)
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info("database connected")
		return store.NewPostgres(pool, logger), nil
	}
}
