package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/ibrahimkeyboad/govend/internal/adapter/handler"
	"github.com/ibrahimkeyboad/govend/internal/adapter/storage"
	"github.com/ibrahimkeyboad/govend/internal/core/config"
	"github.com/ibrahimkeyboad/govend/internal/core/logger"
	"github.com/ibrahimkeyboad/govend/internal/core/notifications"
	"github.com/ibrahimkeyboad/govend/internal/core/security"
	"github.com/ibrahimkeyboad/govend/internal/core/service"
	"github.com/ibrahimkeyboad/govend/internal/core/vending"
	"github.com/ibrahimkeyboad/govend/internal/core/worker"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// 2. Setup Logger
	log, err := logger.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		slog.Error("Invalid log level", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	policy, err := vending.ParseChargePolicy(cfg.ChargePolicy)
	if err != nil {
		slog.Error("Invalid charge policy", "error", err)
		os.Exit(1)
	}

	// 3. PIN validator and fleet
	pinValidator, err := security.NewHashedPIN(cfg.PIN, bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to prepare PIN validator", "error", err)
		os.Exit(1)
	}

	fleet, err := config.LoadFleet(cfg.FleetFile)
	if err != nil {
		slog.Error("Failed to load fleet", "error", err)
		os.Exit(1)
	}

	registry := storage.NewRegistry()
	for _, spec := range fleet {
		m := vending.NewMachine(pinValidator, spec.Stock, spec.UnitPrice,
			vending.WithID(spec.ID),
			vending.WithChargePolicy(policy),
			vending.WithLogger(log.With("machine", spec.Name)),
		)
		if err := registry.AddMachine(m); err != nil {
			slog.Error("Failed to register machine", "error", err)
			os.Exit(1)
		}
		slog.Info("Machine ready", "id", spec.ID, "name", spec.Name, "stock", spec.Stock, "unit_price", spec.UnitPrice.String())
	}

	// 4. Journal and idempotency: Postgres when configured, memory otherwise
	var (
		dbPool      *pgxpool.Pool
		journal     storage.Journal          = storage.NewMemoryJournal(1000)
		idempotency storage.IdempotencyStore = storage.NewMemoryIdempotencyStore()
	)
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		dbPool, err = storage.ConnectDB(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			slog.Error("Database connection failed", "error", err)
			os.Exit(1)
		}
		journal = storage.NewPostgresJournal(dbPool)
		idempotency = storage.NewPostgresIdempotencyStore(dbPool)
		slog.Info("Using Postgres journal")
	}

	// 5. Webhooks
	webhooks := worker.NewWebhookWorker(notifications.NewSender(cfg.WebhookSecret), worker.WithLogger(log))
	webhooks.Start()
	if cfg.WebhookURL != "" && cfg.WebhookSecret == "" {
		slog.Warn("WEBHOOK_SECRET is missing, webhooks will be unsigned")
	}

	vendService := service.NewVendService(registry, journal,
		service.WithWebhooks(webhooks, cfg.WebhookURL),
		service.WithLogger(log),
	)

	keys := security.NewKeyRing()
	if cfg.AdminAPIKey == "" {
		slog.Error("ADMIN_API_KEY is required to bootstrap operator access")
		os.Exit(1)
	}
	if err := keys.Add(cfg.AdminAPIKey); err != nil {
		slog.Error("Invalid ADMIN_API_KEY", "error", err)
		os.Exit(1)
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	handler.Register(app, handler.Deps{
		Registry:    registry,
		Journal:     journal,
		Idempotency: idempotency,
		Keys:        keys,
		Service:     vendService,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "env", cfg.Env, "port", cfg.Port, "charge_policy", policy)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutting down server...")

	// Stop accepting requests first, then flush webhooks, then the pool
	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := webhooks.Stop(ctx); err != nil {
		slog.Error("Webhook worker did not drain", "error", err)
	}

	if dbPool != nil {
		dbPool.Close()
		slog.Info("Database connection closed")
	}

	slog.Info("Server exited successfully")
}
