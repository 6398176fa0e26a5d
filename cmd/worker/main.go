package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/pobredward/inschoolz-push-api/internal/config"
	"github.com/pobredward/inschoolz-push-api/internal/repository/postgres"
	"github.com/pobredward/inschoolz-push-api/internal/service/compose"
	dispatchService "github.com/pobredward/inschoolz-push-api/internal/service/dispatch"
	registryService "github.com/pobredward/inschoolz-push-api/internal/service/registry"
	"github.com/pobredward/inschoolz-push-api/pkg/expo"
	"github.com/pobredward/inschoolz-push-api/pkg/logger"
	redisBroker "github.com/pobredward/inschoolz-push-api/pkg/messaging/redis"
	"github.com/pobredward/inschoolz-push-api/pkg/metrics"
	"github.com/pobredward/inschoolz-push-api/pkg/worker"
)

// WorkerEnv holds worker-specific overrides taken from the environment,
// separate from the shared YAML config.
type WorkerEnv struct {
	Channel    string `envconfig:"WORKER_CHANNEL"`
	HealthPort int    `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
}

func setupHealthCheck(port int, logger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			logger.ZL.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var env WorkerEnv
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker environment")
	}

	appLogger := logger.NewLogger(nil)
	m := metrics.NewMetrics("push_worker")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisBroker.NewRedisBroker(cfg.ToBrokerConfig(), &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	baseRepo := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(baseRepo)
	tokenRepo := postgres.NewTokenRepository(baseRepo)

	registrySvc := registryService.NewService(userRepo, tokenRepo,
		time.Duration(cfg.Push.CacheTTLSecs)*time.Second)
	pushClient := expo.NewClient(expo.Config{
		Endpoint: cfg.Push.Endpoint,
		Timeout:  time.Duration(cfg.Push.TimeoutSeconds) * time.Second,
	}, appLogger)
	dispatchSvc := dispatchService.NewService(registrySvc, compose.New(), pushClient, dispatchService.Config{
		Concurrency: cfg.Push.Concurrency,
		BatchRPS:    cfg.Push.BatchRPS,
		BatchBurst:  cfg.Push.BatchBurst,
	}, appLogger, m)

	processor := worker.NewDispatchProcessor(broker, dispatchSvc, worker.DispatchProcessorConfig{
		Channel: env.Channel,
	}, appLogger, m)

	setupHealthCheck(env.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("shutting down...")
		cancel()
	}()

	if err := processor.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("dispatch processor failed")
	}
}
