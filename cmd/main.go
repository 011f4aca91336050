package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "licensor/docs"
	"licensor/internal/caching"
	"licensor/internal/config"
	"licensor/internal/handlers"
	"licensor/internal/jobs/background"
	"licensor/internal/keycodec"
	"licensor/internal/middleware"
	"licensor/internal/repositories"
	"licensor/internal/services"
	"licensor/pkg/database"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	if cfg.RunMigrations {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
	}
	pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Redis
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer cacheSvc.Close()

	// MinIO archive for pruned usage records
	var store services.ObjectStore
	if cfg.MinioEnabled() {
		store, err = services.NewMinioService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
		if err != nil {
			return fmt.Errorf("failed to initialize MinIO service: %w", err)
		}
	} else {
		logger.Warn("MINIO_ENDPOINT not set, usage records are deleted without archiving")
	}

	if cfg.LicenseKeyPepper == "" {
		logger.Warn("LICENSE_KEY_PEPPER not set, fingerprints are unkeyed SHA-256")
	}
	codec := keycodec.New(cfg.LicenseKeyPepper)

	// Repositories
	licenseRepo := repositories.NewLicenseRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	usageRepo := repositories.NewUsageRepo(pool)
	statsRepo := repositories.NewStatsRepo(pool)

	// Services
	recorder := services.NewUsageRecorder(usageRepo, licenseRepo, logger, services.UsageRecorderOptions{
		QueueSize: cfg.UsageQueueSize,
		Workers:   cfg.UsageWorkers,
	})
	recorder.Start(ctx)
	defer recorder.Stop()

	validationSvc := services.NewValidationService(codec, licenseRepo, subscriptionRepo, recorder, logger, services.ValidationOptions{
		RecheckAfter:  cfg.RecheckInterval,
		LookupTimeout: cfg.LookupTimeout,
	})
	lifecycleSvc := services.NewLifecycleService(codec, licenseRepo, logger)
	subscriptionSvc := services.NewSubscriptionService(subscriptionRepo, logger)
	dashboardSvc := services.NewDashboardService(statsRepo, usageRepo)
	archiveSvc := services.NewArchiveService(usageRepo, store, logger)

	adminAuth, err := middleware.NewAdminAuth(cfg.JWTSecret, cfg.AdminJWKSURL, logger)
	if err != nil {
		return err
	}
	defer adminAuth.Close()

	// Handlers
	validationHandlers := handlers.NewValidationHandlers(validationSvc)
	licenseHandlers := handlers.NewLicenseHandlers(lifecycleSvc, dashboardSvc, logger)
	subscriptionHandlers := handlers.NewSubscriptionHandlers(subscriptionSvc, logger)
	dashboardHandlers := handlers.NewDashboardHandlers(dashboardSvc, logger)
	webhookHandlers := handlers.NewWebhookHandlers(subscriptionSvc, cacheSvc, cfg.StripeWebhookSecret, logger)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, store, version)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	// Version middleware
	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	// Health, metrics and docs
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Billing provider
	e.POST("/webhooks/stripe", webhookHandlers.StripeWebhook)

	// API routes
	v1 := e.Group("/v1")
	v1.Use(versionMiddleware.VersionHeader("v1"))

	v1.POST("/licenses/validate", validationHandlers.ValidateLicense,
		middleware.RateLimit(cacheSvc, "validate", cfg.RateLimitRequests, cfg.RateLimitWindow, logger))

	admin := v1.Group("/admin", adminAuth.Middleware()...)
	admin.GET("/licenses", licenseHandlers.ListLicenses)
	admin.POST("/licenses", licenseHandlers.CreateLicense)
	admin.GET("/licenses/:id", licenseHandlers.GetLicense)
	admin.POST("/licenses/:id/suspend", licenseHandlers.SuspendLicense)
	admin.POST("/licenses/:id/activate", licenseHandlers.ActivateLicense)
	admin.POST("/licenses/:id/deactivate", licenseHandlers.DeactivateLicense)
	admin.POST("/licenses/:id/rotate", licenseHandlers.RotateLicense)
	admin.GET("/licenses/:id/usage", licenseHandlers.ListLicenseUsage)
	admin.GET("/active-licenses", licenseHandlers.ListActiveLicenses)

	admin.GET("/subscriptions", subscriptionHandlers.ListSubscriptions)
	admin.POST("/subscriptions", subscriptionHandlers.CreateSubscription)
	admin.GET("/subscriptions/:id", subscriptionHandlers.GetSubscription)
	admin.PUT("/subscriptions/:id", subscriptionHandlers.UpdateSubscription)
	admin.DELETE("/subscriptions/:id", subscriptionHandlers.DeleteSubscription)

	admin.GET("/dashboard", dashboardHandlers.GetDashboard)

	// Background jobs
	scheduler, err := background.NewJobScheduler(archiveSvc, dashboardSvc, cfg.UsageRetention, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Error("failed to stop job scheduler", "error", err)
		}
	}()

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "version", version)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
