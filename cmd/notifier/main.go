package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"quote-service/internal/api"
	"quote-service/internal/config"
	"quote-service/internal/notifier"
	"quote-service/internal/repository"
)

func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	api.SetupGlobalHandler(cfg.ServiceName)

	db, err := sqlx.Connect("pgx", cfg.Database.URL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var pusher notifier.Pusher
	if cfg.APNs.Enabled() {
		client, err := notifier.NewAPNsClient(cfg.APNs)
		if err != nil {
			log.Fatalf("Failed to create APNs client: %v", err)
		}
		pusher = client
		slog.Info("APNs client initialized", slog.String("mode", cfg.APNs.Mode))
	} else {
		slog.Warn("APNs not configured, running in mock mode")
	}

	worker := notifier.NewWorker(repository.NewPostgresDeviceTokenRepository(db), pusher, cfg.APNs.Topic)

	nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	if _, err := worker.Subscribe(nc); err != nil {
		log.Fatalf("Failed to subscribe to quote events: %v", err)
	}

	slog.Info("Notification worker started, waiting for events")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down notification worker")
}
