package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/datadash/internal/activity"
	"github.com/JonMunkholm/datadash/internal/config"
	"github.com/JonMunkholm/datadash/internal/core"
	"github.com/JonMunkholm/datadash/internal/kaggle"
	"github.com/JonMunkholm/datadash/internal/logging"
	"github.com/JonMunkholm/datadash/internal/session"
	"github.com/JonMunkholm/datadash/internal/staging"
	"github.com/JonMunkholm/datadash/internal/web"
)

func main() {
	// Overload lets a local .env win over the shell environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.ModelsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	creds, err := kaggle.LoadCredentials(cfg.Kaggle.ConfigDir)
	switch {
	case err == nil:
		slog.Info("Found kaggle.json", "source", creds.Source)
	case errors.Is(err, kaggle.ErrNoCredentials):
		slog.Warn("No kaggle.json found; dataset downloads will fail until credentials are configured")
	default:
		slog.Warn("kaggle credentials unreadable", "error", err)
	}
	client := kaggle.NewClient(cfg.Kaggle.BaseURL, creds, cfg.Kaggle.Timeout)

	ctx := context.Background()
	store, err := activity.Open(ctx, cfg.Activity.Driver, cfg.Activity.DSN)
	if err != nil {
		slog.Error("failed to open activity log", "driver", cfg.Activity.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("activity log ready", "driver", cfg.Activity.Driver)

	service := core.NewService(client, staging.NewRegistry(cfg.Paths.StagingDir), store, core.Options{
		Encoding:               cfg.Upload.Encoding,
		MaxUploadSize:          cfg.Upload.MaxFileSize,
		DownloadTimeout:        cfg.Kaggle.Timeout,
		MaxConcurrentDownloads: cfg.Kaggle.MaxConcurrent,
		DownloadWait:           cfg.Kaggle.MaxWaitTime,
	})

	sessions := session.NewStore()
	server := web.NewServer(service, sessions, web.Options{
		Server:          cfg.Server,
		Session:         cfg.Session,
		Rate:            cfg.Rate,
		Security:        cfg.Security,
		DownloadTimeout: cfg.Kaggle.Timeout,
		HasCredentials:  client.HasCredentials(),
	})

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go sessions.RunReaper(jobCtx, cfg.Session.IdleTimeout, cfg.Session.ReapInterval)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if st := service.Limiter().Status(); st.Active > 0 {
			slog.Info("waiting for downloads to complete", "active", st.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("downloads did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		_ = store.Close()
		os.Exit(1)
	}
	cancelJobs()
	slog.Info("server stopped")
}
