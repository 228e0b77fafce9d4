package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/edconde/clinica3s/internal/config"
	"github.com/edconde/clinica3s/internal/handler/health"
	"github.com/edconde/clinica3s/internal/repository/postgres"
	"github.com/edconde/clinica3s/pkg/logger"
	"github.com/edconde/clinica3s/pkg/messaging"
	"github.com/edconde/clinica3s/pkg/messaging/redis"
	"github.com/edconde/clinica3s/pkg/metrics"
	"github.com/edconde/clinica3s/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appLogger := logger.New(logger.Config{Level: cfg.Log.Level, Console: cfg.Log.Console})
	log.Logger = appLogger.ZL

	hostname, _ := os.Hostname()
	appLogger = appLogger.WithFields(map[string]interface{}{"worker_id": fmt.Sprintf("%s-%d", hostname, os.Getpid())})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics(registry, "clinica3s", "worker")

	broker := newBroker(ctx, cfg.Redis, appLogger)
	defer broker.Close()

	processor, err := worker.NewOutboxProcessor(
		postgres.NewTransactor(db),
		postgres.NewOutboxRepository(db),
		broker,
		worker.OutboxProcessorConfig{
			Channel:         cfg.Redis.Channel,
			BatchSize:       cfg.Outbox.BatchSize,
			PollInterval:    cfg.Outbox.PollInterval,
			RetryAttempts:   cfg.Outbox.RetryAttempts,
			RetryDelay:      cfg.Outbox.RetryDelay,
			RetentionPeriod: cfg.Outbox.RetentionPeriod,
		},
		appLogger,
		m,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid outbox configuration")
	}

	healthSrv := newHealthServer(cfg.Outbox.HealthPort, health.NewHandler(db), registry)
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(err, "health check server failed")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			appLogger.Info("shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	processor.Start(ctx)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "failed to stop health check server")
	}
}

// newBroker connects to Redis. Without a URL, or when Redis cannot be reached,
// events are kept in memory so the relay loop still runs.
func newBroker(ctx context.Context, cfg config.RedisConfig, l *logger.Logger) messaging.Broker {
	if cfg.URL == "" {
		l.Warn("redis url not set, using in-memory broker")
		return messaging.NewMemoryBroker()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	broker, err := redis.NewRedisBroker(connectCtx, redis.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}, l.ZL)
	if err != nil {
		l.Error(err, "redis unavailable, using in-memory broker")
		return messaging.NewMemoryBroker()
	}
	return broker
}

func newHealthServer(port int, h *health.Handler, registry *prometheus.Registry) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	h.RegisterRoutes(engine)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
