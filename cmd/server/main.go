package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"quote-service/internal/api"
	"quote-service/internal/config"
	"quote-service/internal/events"
	"quote-service/internal/repository"
	"quote-service/internal/service"
	"quote-service/internal/storage"
	"quote-service/internal/tracing"
	_ "quote-service/migrations"
)

type stores struct {
	quotes  repository.QuoteRepository
	users   repository.UserRepository
	tokens  repository.TokenRepository
	devices repository.DeviceTokenRepository
	close   func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	api.SetupGlobalHandler(cfg.ServiceName)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		handleMigrations(cfg)
		return
	}

	ctx := context.Background()

	shutdownTracer := tracing.ShutdownFunc(tracing.Noop)
	if cfg.TracingEnabled {
		shutdownTracer, err = tracing.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
		}
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Error("Error shutting down tracer provider", slog.String("error", err.Error()))
		}
	}()

	st := openStores(cfg)
	defer st.close()

	var publisher events.EventPublisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, nc, err := events.NewNatsPublisher(cfg.NATSURL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Close()
		publisher = natsPublisher
		slog.Info("Successfully connected to NATS")
	} else {
		slog.Warn("NATS_URL not set, quote events will not be published")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid QUOTA_TIMEZONE: %v", err)
	}

	textGen := service.NewTemplateTextGenerator()
	opts := []service.QuoteServiceOption{service.WithTextGenerator(textGen)}
	if cfg.S3.Enabled() {
		presigner, err := storage.NewPDFPresigner(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to configure S3 presigner: %v", err)
		}
		opts = append(opts, service.WithPDFStorage(presigner))
	}

	guard := service.NewQuotaGuard(st.quotes, cfg.MonthlyQuoteLimit, loc)
	quoteService := service.NewQuoteService(st.quotes, guard, publisher, opts...)
	statsService := service.NewStatisticsService(st.quotes, guard)
	authService := service.NewAuthService(st.users, st.tokens, st.devices, []byte(cfg.JWTSecret))

	app := fiber.New()
	app.Use(otelfiber.Middleware())
	app.Use(api.PrometheusMiddleware())

	api.SetupRoutes(app,
		api.RouterConfig{
			ServiceName:         cfg.ServiceName,
			JWTSecret:           []byte(cfg.JWTSecret),
			RateLimitMax:        cfg.RateLimitMax,
			RateLimitExpiration: cfg.RateLimitExpiration,
		},
		api.NewAuthHandler(authService),
		api.NewQuoteHandler(quoteService, statsService, guard, textGen),
	)

	go func() {
		slog.Info("Listening", slog.String("service", cfg.ServiceName), slog.String("port", cfg.AppPort))
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("Graceful shutdown failed", slog.String("error", err.Error()))
	}
}

func openStores(cfg *config.Config) stores {
	if cfg.StorageDriver == config.StorageDriverMemory {
		slog.Warn("Using in-memory storage, data is lost on restart")
		mem := repository.NewMemoryStore()
		return stores{
			quotes:  mem.Quotes(),
			users:   mem.Users(),
			tokens:  mem.Tokens(),
			devices: mem.DeviceTokens(),
			close:   func() error { return nil },
		}
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	slog.Info("Successfully connected to the database")

	return stores{
		quotes:  repository.NewPostgresQuoteRepository(db),
		users:   repository.NewPostgresUserRepository(db),
		tokens:  repository.NewPostgresTokenRepository(db),
		devices: repository.NewPostgresDeviceTokenRepository(db),
		close:   db.Close,
	}
}

func handleMigrations(cfg *config.Config) {
	slog.Info("Running database migrations")

	db, err := sql.Open("pgx", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("failed to connect to database for migration: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set goose dialect: %v", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatalf("goose: failed to run migrations: %v", err)
	}

	slog.Info("Migrations applied successfully")
}
