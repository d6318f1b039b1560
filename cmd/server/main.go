package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/FlexQR/config"
	appserver "github.com/sifan077/FlexQR/internal/app/server"
	"github.com/sifan077/FlexQR/internal/app/service"
	"github.com/sifan077/FlexQR/internal/infra/logger"
	infraNATS "github.com/sifan077/FlexQR/internal/infra/nats"
	infraPrometheus "github.com/sifan077/FlexQR/internal/infra/prometheus"
	infraRedis "github.com/sifan077/FlexQR/internal/infra/redis"
	"go.uber.org/zap"
)

const shortCodeRefreshInterval = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCfg := logger.FromEnv("flexqr")
	isDev := logCfg.Development
	log := logger.MustInit(logCfg)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("addr", cfg.Server.Addr),
		zap.String("backend", cfg.Redirect.Backend),
		zap.String("scan_sink", cfg.Redirect.ScanSink),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Bool("redis_disabled", cfg.Redis.Disabled),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)
	if cfg.Server.TokenSecret == "" {
		log.Warn("FLEXQR_TOKEN_SECRET is empty; the management API will reject every request")
	}

	backend, err := appserver.OpenBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open storage backend", zap.Error(err))
	}
	defer backend.Close()

	var redisClient *redis.Client
	if !cfg.Redis.Disabled {
		redisClient, err = infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Connected to Redis successfully")
	} else {
		log.Info("Redis disabled; redirect rate limiting is off")
	}

	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := infraPrometheus.NewMetrics(registry)

	var js nats.JetStreamContext
	if cfg.Redirect.ScanSink == config.ScanSinkStream {
		natsConn, jetStream, err := infraNATS.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()
		js = jetStream
		log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

		if err := service.EnsureScanStream(js); err != nil {
			log.Fatal("Failed to prepare scan stream", zap.Error(err))
		}
		consumer := service.NewScanConsumer(js, log, backend.Scans, metrics)
		if err := consumer.Start(ctx); err != nil {
			log.Fatal("Failed to start scan consumer", zap.Error(err))
		}
	}

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, registry)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	shortCodes := service.NewShortCodeGenerator(cfg.Redirect.CodeLength, 0)
	refresher := service.NewShortCodeRefresher(log, backend.QrCodes, shortCodes, shortCodeRefreshInterval)
	refresher.Start(ctx)
	defer refresher.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:     log,
		Config:     cfg,
		Backend:    backend,
		Redis:      redisClient,
		JetStream:  js,
		Metrics:    metrics,
		ShortCodes: shortCodes,
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appserver.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", zap.Error(err))
		}
	}()

	if err := server.Listen(cfg.Server.Addr); err != nil {
		log.Error("Fiber server exited", zap.Error(err))
	}
}
