package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streampulse/internal/core/ports"
	"streampulse/internal/core/services"
	"streampulse/internal/infrastructure/feed"
	"streampulse/internal/infrastructure/gateway"
	"streampulse/internal/infrastructure/monitoring"
	repositories "streampulse/internal/infrastructure/repositories"
	"streampulse/pkg/config"
	"streampulse/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
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
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	profileRepo := repoFactory.CreateProfileRepository()
	accountRepo := repoFactory.CreateAccountRepository()
	notificationRepo := repoFactory.CreateNotificationRepository()
	presenceStore := repoFactory.CreatePresenceStore()

	// The feed doubles as the chat relay. With Redis both sides survive
	// running the API server and the gateway as separate processes; the
	// in-process fallback only works when everything shares one binary.
	var notificationFeed ports.NotificationFeed
	var chatRelay ports.ChatRelay
	if client := repoFactory.RedisClient(); client != nil {
		redisFeed := feed.NewRedisFeed(client, log)
		notificationFeed, chatRelay = redisFeed, redisFeed
	} else {
		log.Warn("Redis disabled; notifications published by other processes will not reach this gateway")
		memoryFeed := feed.NewMemoryFeed()
		notificationFeed, chatRelay = memoryFeed, memoryFeed
	}

	prometheusCollector := monitoring.NewPrometheusCollector()

	metricsService := services.NewMetricsService()
	metricsService.SetObserver(prometheusCollector)

	authService := services.NewAuthService(
		accountRepo,
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	presenceService := services.NewPresenceService(presenceStore, services.PresenceConfig{
		HeartbeatTTL: cfg.Presence.HeartbeatTTL,
	}, log)

	wsServer := gateway.NewWebSocketServer(
		authService,
		presenceService,
		notificationRepo,
		notificationFeed,
		chatRelay,
		profileRepo,
		metricsService,
		gateway.Config{
			Retention:    cfg.Notify.RetentionTTL,
			PingInterval: cfg.Gateway.PingInterval,
			ReadTimeout:  cfg.Gateway.PongTimeout,
		},
		log,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsServer.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := repoFactory.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.Write([]byte(`{"status":"healthy"}`))
	})
	if cfg.Monitoring.PrometheusEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:    cfg.Gateway.Address,
		Handler: mux,
	}

	// Mirror the live session count into the Prometheus gauge.
	gaugeDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				prometheusCollector.SetSessionsConnected(wsServer.ConnectedSessions())
			case <-gaugeDone:
				return
			}
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting StreamPulse gateway on %s", cfg.Gateway.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Gateway failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	close(gaugeDone)

	log.Info("Shutting down StreamPulse gateway...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during gateway shutdown", "error", err)
	} else {
		log.Info("Gateway shutdown gracefully")
	}

	log.Info("StreamPulse gateway stopped")
}
