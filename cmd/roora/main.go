package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"roora/internal/auth"
	"roora/internal/blob"
	"roora/internal/cache"
	"roora/internal/cli"
	apphttp "roora/internal/http"
	"roora/internal/log"
	"roora/internal/metrics"
	"roora/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadConfig(log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	shutdownTracing := cli.InitTelemetry(ctx, logger, cfg)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	blobs, err := blob.NewFSStore(cfg.UploadDir)
	if err != nil {
		logger.Error("Failed to initialize file storage", log.FieldError, err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	m := metrics.New()
	opts := services.Options{
		Blobs:     blobs,
		Recorder:  m,
		Cache:     m,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Logger:    logger,
	}
	// The web app keeps working without the broker; changes are then only
	// logged and counted.
	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		logger.Warn("AMQP unavailable, change messages disabled", log.FieldError, err)
	} else if amqpClient != nil {
		defer amqpClient.Close()
		opts.Publisher = amqpClient
	}
	planner := services.NewPlanner(repo, opts)

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	for _, c := range planner.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(ctx, cfg.CacheTTL)
	defer caches.Stop()

	templates, err := apphttp.LoadTemplates(cfg.TemplateDir, logger, time.Now)
	if err != nil {
		logger.Error("Failed to load templates", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.TemplateDir != "" {
		if err := templates.Watch(ctx, cfg.TemplateDir); err != nil {
			logger.Warn("Template hot reload disabled", log.FieldError, err)
		}
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Planner:   planner,
		Auth:      auth.NewPasswordAuthenticator(repo),
		Sessions:  auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.LoginLinkTTL, repo),
		Cookies:   auth.Cookies{Secure: cfg.CookieSecure},
		Metrics:   m,
		Templates: templates,
		Ready:     repo.Ping,
		RateLimit: cfg.RateLimitPerMinute,
		BaseURL:   cfg.BaseURL,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting roora server", "port", cfg.Port, "amqp", opts.Publisher != nil, "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Tracer shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
