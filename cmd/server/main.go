package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streampulse/internal/core/ports"
	"streampulse/internal/core/services"
	httphandlers "streampulse/internal/handlers/http"
	backupinfra "streampulse/internal/infrastructure/backup"
	"streampulse/internal/infrastructure/distributed"
	"streampulse/internal/infrastructure/email"
	"streampulse/internal/infrastructure/feed"
	"streampulse/internal/infrastructure/middleware"
	"streampulse/internal/infrastructure/monitoring"
	repositories "streampulse/internal/infrastructure/repositories"
	"streampulse/pkg/backup"
	"streampulse/pkg/config"
	"streampulse/pkg/logger"
	"streampulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

func main() {
	startTime := time.Now()

	restoreName := flag.String("restore", "", "backup file to restore before serving")
	flag.Parse()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/streampulse/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.DefaultConfig())
	if err != nil {
		log.Warnw("failed to initialize tracing", "error", err)
	} else {
		defer tracerProvider.Shutdown(context.Background())
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	// Initialize repositories
	profileRepo := repoFactory.CreateProfileRepository()
	accountRepo := repoFactory.CreateAccountRepository()
	notificationRepo := repoFactory.CreateNotificationRepository()
	presenceStore := repoFactory.CreatePresenceStore()

	// One-shot restore from a snapshot, then continue startup. Existing
	// rows win; the repair sweep reconciles partial edges afterwards.
	if *restoreName != "" {
		storage, err := backup.NewFileStorage(cfg.Backup.Dir)
		if err != nil {
			log.Fatalw("failed to open backup storage", "error", err)
		}
		restoreService := backupinfra.NewRestoreService(
			backup.NewBackupService(storage, version),
			profileRepo,
			notificationRepo,
			log,
		)
		if err := restoreService.RestoreFromBackup(context.Background(), *restoreName, backupinfra.DefaultRestoreOptions()); err != nil {
			log.Fatalw("restore failed", "backup_name", *restoreName, "error", err)
		}
	}

	// Notification feed: Redis pub/sub when available, in-process otherwise
	var notificationFeed ports.NotificationFeed
	if client := repoFactory.RedisClient(); client != nil {
		notificationFeed = feed.NewRedisFeed(client, log)
	} else {
		notificationFeed = feed.NewMemoryFeed()
	}

	// Email sender
	var emailSender ports.EmailSender
	if cfg.Email.Enabled {
		emailSender = email.NewResendClient(cfg.Email.APIKey, cfg.Email.From, log)
	} else {
		emailSender = email.NewLogSender(log)
	}

	// Initialize monitoring
	prometheusCollector := monitoring.NewPrometheusCollector()

	// Initialize services
	metricsService := services.NewMetricsService()
	metricsService.SetObserver(prometheusCollector)

	authService := services.NewAuthService(
		accountRepo,
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	// Channel page lookups tolerate a few seconds of staleness.
	cachedProfiles := repositories.NewCachedProfileRepository(profileRepo, 5*time.Second)
	defer cachedProfiles.Stop()

	profileService := services.NewProfileService(cachedProfiles, log)
	followService := services.NewFollowService(profileRepo, metricsService, log)
	liveService := services.NewLiveService(
		profileRepo,
		notificationRepo,
		presenceStore,
		notificationFeed,
		emailSender,
		metricsService,
		log,
		cfg.Notify.MaxConcurrent,
	)

	// Background reconciliation of asymmetric follow edges. With Redis the
	// sweep is gated by a lock so only one instance scans the edge sets.
	var sweepGate services.SweepGate
	if client := repoFactory.RedisClient(); client != nil {
		sweepGate = distributed.NewRedisSweepGate(client, cfg.Notify.RepairInterval, log)
	}
	sweeper := services.NewSweeper(profileRepo, cfg.Notify.RepairInterval, sweepGate, log)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	// Periodic profile and notification snapshots to local storage
	if cfg.Backup.Enabled {
		storage, err := backup.NewFileStorage(cfg.Backup.Dir)
		if err != nil {
			log.Fatalw("failed to create backup storage", "error", err)
		}
		backupScheduler := backupinfra.NewScheduler(
			backup.NewBackupService(storage, version),
			profileRepo,
			notificationRepo,
			backupinfra.Config{
				Interval:      cfg.Backup.Interval,
				RetentionDays: cfg.Backup.RetentionDays,
			},
			log,
		)
		go backupScheduler.Start(context.Background())
		defer backupScheduler.Stop()
	}

	// Initialize HTTP handlers
	authHandler := httphandlers.NewAuthHandler(authService)
	profileHandler := httphandlers.NewProfileHandler(profileService)
	followHandler := httphandlers.NewFollowHandler(followService, profileRepo, prometheusCollector)
	liveHandler := httphandlers.NewLiveHandler(liveService, metricsService, prometheusCollector)
	notificationHandler := httphandlers.NewNotificationHandler(notificationRepo)
	emailHandler := httphandlers.NewEmailHandler(emailSender, metricsService, log)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	authMW := middleware.AuthMiddleware(authService)
	optionalAuthMW := middleware.OptionalAuthMiddleware(authService)

	authHandler.SetupRoutes(router)
	profileHandler.SetupRoutes(router, authMW, optionalAuthMW)
	followHandler.SetupRoutes(router, authMW)
	liveHandler.SetupRoutes(router, authMW)
	notificationHandler.SetupRoutes(router, authMW)
	emailHandler.SetupRoutes(router)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Readiness endpoint backed by dependency checks
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddRepositoryCheck(profileRepo, 2*time.Second)
	if client := repoFactory.RedisClient(); client != nil {
		healthChecker.AddRedisCheck(client, 2*time.Second)
	}

	router.GET("/ready", func(c *gin.Context) {
		status := healthChecker.GetReadinessStatus(c.Request.Context())
		code := 200
		if status.Status != "healthy" {
			code = 503
		}
		c.JSON(code, status)
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting StreamPulse API server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down StreamPulse API server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("StreamPulse API server stopped")
}
