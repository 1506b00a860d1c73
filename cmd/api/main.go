package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kundrost/feedback-rewards-backend/internal/api/rest"
	"github.com/kundrost/feedback-rewards-backend/internal/infrastructure/cache"
	"github.com/kundrost/feedback-rewards-backend/internal/infrastructure/config"
	"github.com/kundrost/feedback-rewards-backend/internal/infrastructure/repository"
	"github.com/kundrost/feedback-rewards-backend/internal/infrastructure/telemetry"
	"github.com/kundrost/feedback-rewards-backend/internal/metrics"
	"github.com/kundrost/feedback-rewards-backend/internal/service/fraud"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    "fraud-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	tables, err := fraud.LoadEmbeddedTables()
	if err != nil {
		log.Fatalf("Failed to load language tables: %v", err)
	}

	history := fraud.NewHistoryStore(cfg.Fraud.MaxHistoryEntries)
	patterns := fraud.NewPatternStore()

	registry, err := metrics.NewRegistry("fraud.engine", history.Len, patterns.Len)
	if err != nil {
		log.Fatalf("Failed to create metrics registry: %v", err)
	}

	deps := fraud.Deps{
		Tables:   tables,
		History:  history,
		Patterns: patterns,
		Config:   &cfg.Fraud,
		Logger:   logger,
		Metrics:  registry,
	}

	readiness := make(map[string]rest.ReadinessCheck)

	if cfg.Database.URL != "" {
		pool, err := repository.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		deps.Repository = repository.NewAnalysisRepository(pool)
		deps.BusinessContext = repository.NewBusinessContextRepository(pool)
		deps.CustomerHistory = repository.NewCustomerHistoryRepository(pool)
		readiness["database"] = pool.Ping
	} else {
		logger.Warn("database url not configured, results will not be persisted")
	}

	if cfg.Redis.URL != "" {
		zapLogger, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("Failed to create cache logger: %v", err)
		}
		defer zapLogger.Sync()

		mirror, err := cache.NewRedisFingerprintMirror(&cfg.Redis, zapLogger)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer mirror.Close()

		deps.Mirror = mirror
		readiness["redis"] = mirror.Ping
	}

	svc := fraud.NewService(deps)
	svc.StartSweeper(ctx)

	handler := rest.NewHandler(svc, logger, cfg.Version)
	for name, check := range readiness {
		handler.RegisterReadinessCheck(name, check)
	}

	server := rest.NewServer(cfg, logger, handler)
	logger.Info("fraud analysis engine starting",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"conservative_mode", cfg.Fraud.ConservativeMode,
	)

	if err := server.Start(ctx); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
