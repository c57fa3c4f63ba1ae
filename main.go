package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"audit-service/internal/config"
	"audit-service/internal/domain"
	"audit-service/internal/publisher"
	"audit-service/internal/queue"
	"audit-service/internal/repository"
	"audit-service/internal/server"
	"audit-service/internal/service"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err).Fatal("Could not load configuration")
	}

	log.Info("Starting database migration...")
	m, err := migrate.New("file://db/migrations", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not create migrate instance")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.WithField("error", err).Fatal("Could not apply migration")
	}
	log.Info("Database migration finished successfully.")

	db, err := sql.Open("postgres", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not connect to the database")
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		log.WithField("error", err).Fatal("Could not ping the database")
	}
	log.Info("Successfully connected to the PostgreSQL database.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create event store
	store := repository.NewPostgresEventStore(db)
	go store.RunReaper(ctx, cfg.Store.ReapInterval)

	// Create notification queues
	productQueue := queue.NewPostgresQueue(db, cfg.Queue.ProductQueue, cfg.Queue.VisibilityTimeout, cfg.Queue.MaxReceiveCount)
	failureQueue := queue.NewPostgresQueue(db, cfg.Queue.FailureQueue, cfg.Queue.VisibilityTimeout, cfg.Queue.MaxReceiveCount)

	// Create optional audit export
	var exporter service.AuditExporter
	if cfg.Export.BootstrapServers != "" {
		kafkaExporter, err := publisher.NewKafkaExporter(cfg.Export.BootstrapServers, cfg.Export.Topic)
		if err != nil {
			log.WithField("error", err).Fatal("Could not create Kafka exporter")
		}
		defer kafkaExporter.Close()
		exporter = kafkaExporter
	}

	// Create consumers
	productSubscriber := service.NewSubscriber(
		"product-events",
		productQueue,
		service.NewClassifier(store, exporter, domain.FamilyLifecycle, cfg.Store.Retention),
		cfg.Queue.BatchSize,
		cfg.Queue.PollInterval,
	)
	failureSubscriber := service.NewSubscriber(
		"product-failure-events",
		failureQueue,
		service.NewClassifier(store, exporter, domain.FamilyFailure, cfg.Store.Retention),
		cfg.Queue.BatchSize,
		cfg.Queue.PollInterval,
	)

	go productSubscriber.Run(ctx)
	go failureSubscriber.Run(ctx)

	// Create server
	srv := server.NewServer(service.NewEventQuery(store), db)

	// Setup Echo
	e := echo.New()

	// Health check
	e.GET("/health", srv.HealthCheck)

	// Audit query endpoint
	api := e.Group("/api")
	api.GET("/products/events", srv.GetEvents)

	log.WithField("port", cfg.Port).Info("Audit service is starting with Echo")

	if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
		log.WithField("error", err).Fatal("Echo server failed to start")
	}
}
