package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/pobredward/inschoolz-push-api/internal/config"
	"github.com/pobredward/inschoolz-push-api/internal/handler"
	notificationHandler "github.com/pobredward/inschoolz-push-api/internal/handler/notification"
	tokenHandler "github.com/pobredward/inschoolz-push-api/internal/handler/token"
	"github.com/pobredward/inschoolz-push-api/internal/middleware"
	"github.com/pobredward/inschoolz-push-api/internal/repository/postgres"
	"github.com/pobredward/inschoolz-push-api/internal/router"
	"github.com/pobredward/inschoolz-push-api/internal/service/compose"
	dispatchService "github.com/pobredward/inschoolz-push-api/internal/service/dispatch"
	registryService "github.com/pobredward/inschoolz-push-api/internal/service/registry"
	"github.com/pobredward/inschoolz-push-api/pkg/auth"
	"github.com/pobredward/inschoolz-push-api/pkg/expo"
	"github.com/pobredward/inschoolz-push-api/pkg/logger"
	redisBroker "github.com/pobredward/inschoolz-push-api/pkg/messaging/redis"
	"github.com/pobredward/inschoolz-push-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	m := metrics.NewMetrics("push_api")

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis message broker for the queue path
	broker, err := redisBroker.NewRedisBroker(cfg.ToBrokerConfig(), &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(baseRepo)
	tokenRepo := postgres.NewTokenRepository(baseRepo)

	// Initialize services
	registrySvc := registryService.NewService(userRepo, tokenRepo,
		time.Duration(cfg.Push.CacheTTLSecs)*time.Second)
	composer := compose.New()
	pushClient := expo.NewClient(expo.Config{
		Endpoint: cfg.Push.Endpoint,
		Timeout:  time.Duration(cfg.Push.TimeoutSeconds) * time.Second,
	}, appLogger)
	dispatchSvc := dispatchService.NewService(registrySvc, composer, pushClient, dispatchService.Config{
		Concurrency: cfg.Push.Concurrency,
		BatchRPS:    cfg.Push.BatchRPS,
		BatchBurst:  cfg.Push.BatchBurst,
	}, appLogger, m)

	jwtSvc := auth.NewJWTService(cfg.Auth.Secret, time.Duration(cfg.Auth.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	middleware.RegisterValidators()

	// Initialize handlers
	h := handler.NewHandler(db.Ping)
	notifH := notificationHandler.NewHandler(dispatchSvc, broker)
	tokH := tokenHandler.NewHandler(registrySvc)

	// Setup router
	r := router.NewRouter(authMiddleware, notifH, tokH, h, router.Config{
		RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
		RateBurst:     cfg.Server.RateLimitBurst,
		MetricsPrefix: "push_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
