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

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/vaccine-clinic-api/internal/config"
	audithandler "github.com/jwalitptl/vaccine-clinic-api/internal/handler/audit"
	bookinghandler "github.com/jwalitptl/vaccine-clinic-api/internal/handler/booking"
	"github.com/jwalitptl/vaccine-clinic-api/internal/handler/health"
	"github.com/jwalitptl/vaccine-clinic-api/internal/handler/prometheus"
	schedulehandler "github.com/jwalitptl/vaccine-clinic-api/internal/handler/schedule"
	staffhandler "github.com/jwalitptl/vaccine-clinic-api/internal/handler/staff"
	"github.com/jwalitptl/vaccine-clinic-api/internal/middleware"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository/memory"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/vaccine-clinic-api/internal/router"
	auditService "github.com/jwalitptl/vaccine-clinic-api/internal/service/audit"
	bookingService "github.com/jwalitptl/vaccine-clinic-api/internal/service/booking"
	eventService "github.com/jwalitptl/vaccine-clinic-api/internal/service/event"
	scheduleService "github.com/jwalitptl/vaccine-clinic-api/internal/service/schedule"
	staffService "github.com/jwalitptl/vaccine-clinic-api/internal/service/staff"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/auth"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/messaging"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/metrics"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/validator"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Log.Pretty,
	})
	log.Logger = appLogger.Zerolog()

	zapLogger, err := logger.NewZap(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build service logger")
	}
	defer func() { _ = zapLogger.Sync() }()

	m := metrics.NewMetrics(cfg.Metrics.Namespace)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize repositories
	var repos *postgres.Repositories
	checks := map[string]health.Check{}
	var db *sqlx.DB
	if cfg.Storage.Driver == "memory" {
		store := memory.NewStore()
		repos = &postgres.Repositories{
			Bookings:  store.Bookings(),
			Schedules: store.Schedules(),
			Staff:     store.Staff(),
			Audit:     store.Audit(),
			Outbox:    store.Outbox(),
		}
		log.Warn().Msg("using in-memory storage, data is lost on exit")
	} else {
		db, err = postgres.NewDB(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		repos = postgres.NewRepositories(db)
		checks["database"] = db.PingContext
	}

	// Initialize services
	v := validator.New()
	directory := staffService.NewDirectory(repos.Staff, cfg.StaffCache.TTL, cfg.StaffCache.CleanupInterval)
	auditSvc := auditService.NewService(repos.Audit)
	eventSvc := eventService.NewEventService(repos.Outbox, zapLogger)
	bookingSvc := bookingService.NewService(repos.Bookings, directory, auditSvc, v, m, zapLogger).
		WithClock(time.Now, cfg.Location())
	scheduleSvc := scheduleService.NewService(repos.Schedules, directory, eventSvc, auditSvc, v, m, zapLogger, cfg.Scheduler.Workers).
		WithClock(time.Now, cfg.Location())
	tokens := auth.NewJWTService(cfg.ToJWTConfig())

	// The in-memory outbox only exists in this process, so it is drained here.
	if cfg.Storage.Driver == "memory" {
		broker := messaging.NewLocalBroker()
		defer broker.Close()
		processor := worker.NewOutboxProcessor(repos.Outbox, broker, cfg.ToWorkerConfig(), appLogger, m)
		go processor.Start(ctx)

		if err := bootstrapAdmin(ctx, directory, tokens); err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap admin")
		}
	} else {
		broker, err := redis.NewRedisBroker(cfg.ToBrokerConfig(), &log.Logger, m)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
		checks["redis"] = broker.Ping
	}

	// Setup router
	r := router.NewRouter(middleware.NewAuthMiddleware(tokens), router.Handlers{
		Health:   health.NewHandler(checks),
		Metrics:  prometheus.New(m),
		Bookings: bookinghandler.NewHandler(bookingSvc),
		Schedule: schedulehandler.NewHandler(scheduleSvc),
		Staff:    staffhandler.NewHandler(directory, v),
		Audit:    audithandler.NewHandler(auditSvc),
	}, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		Timeout:          time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig:       middleware.DefaultCORSConfig(),
		Security:         middleware.DefaultSecurityConfig(),
	})
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("storage", cfg.Storage.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

// bootstrapAdmin registers an administrator in a fresh in-memory store and
// logs a token for it, since there is no other way to reach that store.
func bootstrapAdmin(ctx context.Context, directory *staffService.Directory, tokens *auth.JWTService) error {
	admin := &model.Staff{Name: "Bootstrap Admin", Role: model.RoleAdmin, Active: true}
	if err := directory.Register(ctx, admin); err != nil {
		return err
	}
	token, err := tokens.GenerateAccessToken(model.Actor{StaffID: admin.ID, Role: model.RoleAdmin})
	if err != nil {
		return err
	}
	log.Info().Str("staff_id", admin.ID.String()).Str("token", token).Msg("bootstrap admin created")
	return nil
}
