package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/vaccine-clinic-api/internal/config"
	"github.com/jwalitptl/vaccine-clinic-api/internal/email"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository/postgres"
	auditService "github.com/jwalitptl/vaccine-clinic-api/internal/service/audit"
	clinicworker "github.com/jwalitptl/vaccine-clinic-api/internal/worker"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/logger"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/metrics"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/worker"
)

// Settings are the worker process knobs, read from WORKER_* variables.
type Settings struct {
	HealthPort      int           `envconfig:"HEALTH_PORT" default:"8081"`
	AlertRecipients []string      `envconfig:"ALERT_RECIPIENTS"`
	AuditRetention  time.Duration `envconfig:"AUDIT_RETENTION" default:"2160h"`
	OutboxRetention time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`
	RetentionEvery  time.Duration `envconfig:"RETENTION_INTERVAL" default:"1h"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"25"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"clinic@localhost"`
}

func setupHealthCheck(port int, m *metrics.Metrics, ready func(context.Context) error, logger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "Health check server failed")
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.Storage.Driver != "postgres" {
		log.Fatal().Str("driver", cfg.Storage.Driver).Msg("the outbox worker needs the postgres storage driver")
	}

	var settings Settings
	if err := envconfig.Process("worker", &settings); err != nil {
		log.Fatal().Err(err).Msg("Failed to read worker settings")
	}

	// Initialize logger
	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Log.Pretty,
	}).WithFields(map[string]interface{}{"worker_id": workerID()})
	log.Logger = appLogger.Zerolog()

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics(cfg.Metrics.Namespace + "_worker")

	// Initialize Redis broker
	zl := appLogger.Zerolog()
	broker, err := redis.NewRedisBroker(cfg.ToBrokerConfig(), &zl, m)
	if err != nil {
		appLogger.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// Initialize and start outbox processor
	processor := worker.NewOutboxProcessor(repos.Outbox, broker, cfg.ToWorkerConfig(), appLogger, m)

	sender := email.NewSMTPService(email.SMTPConfig{
		Host:     settings.SMTPHost,
		Port:     settings.SMTPPort,
		Username: settings.SMTPUsername,
		Password: settings.SMTPPassword,
		From:     settings.SMTPFrom,
	})
	alerter := clinicworker.NewReactionAlerter(sender, settings.AlertRecipients)
	processor.Handle(model.EventReactionRecorded, alerter.Handle)

	retention := clinicworker.NewRetentionWorker(auditService.NewService(repos.Audit), repos.Outbox, clinicworker.RetentionConfig{
		AuditRetention:  settings.AuditRetention,
		OutboxRetention: settings.OutboxRetention,
		Interval:        settings.RetentionEvery,
	}, appLogger)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(settings.HealthPort, m, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := broker.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("Shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		retention.Start(ctx)
	}()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)
}

func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("worker-%s-%d", hostname, time.Now().UnixNano())
}
