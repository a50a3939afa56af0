package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"librarian/internal/app"
	"librarian/internal/config"
	"librarian/internal/database"
	"librarian/internal/logger"
	"librarian/internal/models"
	"librarian/internal/services"
	"librarian/pkg/rabbitmq"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := run(quit); err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("server stopped")
	}
}

// run starts the server and blocks until quit receives a signal.
func run(quit <-chan os.Signal) error {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// --- Database ---
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(db, cfg); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// --- RabbitMQ (optional) ---
	var publisher services.EventPublisher
	if cfg.EventsEnabled() {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue}, log)
		if err != nil {
			return err
		}
		defer mqClient.Close()
		publisher = mqClient

		audit := log.With().Str("component", "audit").Logger()
		if err := mqClient.ConsumeBookEvents(func(e models.BookEvent) error {
			audit.Info().
				Str("event", e.Type).
				Str("book_id", e.BookID).
				Str("actor", e.Actor).
				Time("occurred_at", e.OccurredAt).
				Msg("book changed")
			return nil
		}); err != nil {
			log.Error().Err(err).Msg("failed to start book event consumer")
		}
	}

	// --- Metrics ---
	var registry *prometheus.Registry
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// --- Fiber App ---
	server := app.NewApp(app.Deps{
		Config:    cfg,
		DB:        db,
		Logger:    log,
		Publisher: publisher,
		Registry:  registry,
		AccessLog: true,
	})

	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.AppPort).Msg("starting server")
		listenErr <- server.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	log.Info().Msg("shutting down server")
	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("error during Fiber shutdown")
	}
	log.Info().Msg("server gracefully stopped")
	return nil
}
