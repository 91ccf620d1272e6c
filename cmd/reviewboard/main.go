package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/ericfisherdev/reviewboard/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/reviewboard/internal/adapter/driving/http"
	"github.com/ericfisherdev/reviewboard/internal/application"
	"github.com/ericfisherdev/reviewboard/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (site settings file, then process env).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	slog.Info("config loaded",
		"site_dir", cfg.SiteDir,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"log_level", cfg.LogLevel,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters and services.
	localSiteStore := sqliteadapter.NewLocalSiteRepo(db)
	userStore := sqliteadapter.NewUserRepo(db)
	reviewRequestStore := sqliteadapter.NewReviewRequestRepo(db)
	diffStore := sqliteadapter.NewDiffRepo(db)
	reviewStore := sqliteadapter.NewReviewRepo(db)

	commentSvc := application.NewCommentService(localSiteStore, reviewRequestStore, diffStore, reviewStore)
	authSvc := application.NewAuthService(userStore)

	// 6. Metrics registry, including the reader pool stats.
	metrics := httphandler.NewMetrics()
	metrics.Registry().MustRegister(collectors.NewDBStatsCollector(db.Reader, "reviewboard"))

	// 7. HTTP handler and middleware chain.
	apiHandler := httphandler.NewHandler(commentSvc, logger)
	handler := httphandler.NewServeMux(apiHandler, authSvc, metrics, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("reviewboard started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
