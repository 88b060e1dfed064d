package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agendahub/notifier/internal/alert"
	"github.com/agendahub/notifier/internal/config"
	"github.com/agendahub/notifier/internal/handler/health"
	"github.com/agendahub/notifier/internal/handler/qr"
	"github.com/agendahub/notifier/internal/notifier"
	"github.com/agendahub/notifier/internal/repository/postgres"
	"github.com/agendahub/notifier/internal/router"
	"github.com/agendahub/notifier/internal/session"
	"github.com/agendahub/notifier/pkg/logger"
	"github.com/agendahub/notifier/pkg/messaging"
	"github.com/agendahub/notifier/pkg/messaging/redis"
	"github.com/agendahub/notifier/pkg/metrics"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "directory containing config.yaml")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLog := logger.NewLogger(nil)

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLog.Fatal(err, "failed to connect to database")
	}
	defer db.Close()
	repo := postgres.NewAppointmentRepository(db)

	m := metrics.NewMetrics("notifier", prometheus.DefaultRegisterer)

	// Delivery-report broker is optional; reminders still go out without it.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &log.Logger)
		if err != nil {
			appLog.Error(err, "failed to connect to Redis, delivery reports disabled")
			broker = nil
		} else {
			defer broker.Close()
		}
	}

	alerter := alert.NewFromConfig(cfg.SMTP, appLog)

	// Messaging session: whatsmeow client with credentials in Postgres.
	client, err := session.NewWhatsmeowClient(cfg.Database.DSN())
	if err != nil {
		appLog.Fatal(err, "failed to initialize messaging client")
	}

	qrHandler := qr.NewHandler()
	manager := session.NewManager(client, session.Config{
		MaxReconnectAttempts: cfg.Session.MaxReconnectAttempts,
		ReconnectBackoff:     cfg.Session.ReconnectBackoff,
	}, alerter, appLog, m, session.NewTerminalQR(), qrHandler)

	dispatcher := notifier.NewDispatcher(manager, notifier.DispatcherConfig{
		MessageDelay:         cfg.Notifier.MessageDelay,
		CountryCode:          cfg.Notifier.CountryCode,
		RegistrationCacheTTL: cfg.Notifier.RegistrationCacheTTL,
	}, appLog, m)

	scanner := notifier.NewScanner(repo, dispatcher, manager, broker, notifier.ScannerConfig{
		MaxPerCycle: cfg.Notifier.MaxPerCycle,
	}, appLog, m)

	scheduler := notifier.NewScheduler(repo, manager, scanner, notifier.SchedulerConfig{
		PollInterval: cfg.Notifier.PollInterval,
	}, appLog)

	// Operational HTTP surface: health probes, metrics, QR pairing image.
	r := router.NewRouter(appLog, health.NewHandler(db, manager), qrHandler)
	go func() {
		if err := r.Serve(cfg.Server.Port); err != nil {
			appLog.Error(err, "http server stopped")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLog.Info("shutdown signal received")
		cancel()
	}()

	if err := scheduler.Run(ctx); err != nil {
		appLog.Error(err, "notifier terminated")
		os.Exit(1)
	}
}
