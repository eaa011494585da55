package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/worker"
	"storefront/pkg/carrier"
	"storefront/pkg/gateway"
	"storefront/pkg/rabbitmq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// --- Database ---
	db, err := database.Open(database.Config{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseDSN})
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	if err := repositories.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	if cfg.SeedCatalog {
		seedProducts(context.Background(), repositories.NewGORMProductRepository(db), logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(cfg, db, logger)
	if err != nil {
		logger.Fatal("failed to initialise application", zap.Error(err))
	}
	if err := app.start(ctx); err != nil {
		logger.Fatal("failed to start background workers", zap.Error(err))
	}

	// --- Start HTTP Server ---
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.AppPort))
		if err := app.http.Listen(cfg.AppPort); err != nil {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	logger.Info("shutting down server")
	if err := app.shutdown(); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}

// application owns the HTTP server and the background fulfillment machinery.
type application struct {
	http        *fiber.App
	fulfillment *services.FulfillmentService
	local       *services.LocalScheduler
	mq          *rabbitmq.Client
	reconciler  *worker.ReconciliationWorker

	cancel       context.CancelFunc
	consumerDone <-chan struct{}
	workerDone   chan struct{}
}

// newApplication wires clients, services and routes. Provisioning goes through RabbitMQ
// when RABBITMQ_URL is set and through an in-process worker pool otherwise.
func newApplication(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*application, error) {
	store := repositories.NewGORMStore(db)

	carrierClient, err := carrier.NewClient(carrier.Config{
		BaseURL:  cfg.Carrier.BaseURL,
		Email:    cfg.Carrier.Email,
		Password: cfg.Carrier.Password,
		Timeout:  cfg.Carrier.Timeout,
		TokenTTL: cfg.Carrier.TokenTTL,
	}, carrier.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	gatewayClient, err := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
		Timeout:   cfg.Gateway.Timeout,
	}, nil, logger)
	if err != nil {
		return nil, err
	}

	fulfillment := services.NewFulfillmentService(store, carrierClient, services.FulfillmentConfig{
		PickupLocation: cfg.Carrier.PickupLocation,
		PickupPincode:  cfg.Carrier.PickupPincode,
	}, nil, logger)

	a := &application{fulfillment: fulfillment}

	var scheduler services.FulfillmentScheduler
	if cfg.RabbitMQURL != "" {
		a.mq, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.FulfillmentQueue, Prefetch: 4}, logger)
		if err != nil {
			return nil, err
		}
		scheduler = services.NewQueueScheduler(a.mq)
	} else {
		logger.Warn("RABBITMQ_URL not set, provisioning runs in-process")
		a.local = services.NewLocalScheduler(fulfillment, 4, 128, logger)
		scheduler = a.local
	}

	orders := services.NewOrderService(services.OrderServiceDeps{
		Store:     store,
		Gateway:   gatewayClient,
		Scheduler: scheduler,
		Pricing:   cfg.Pricing,
		Logger:    logger,
	})

	a.http = handlers.NewApp(handlers.Deps{
		Orders:       orders,
		Coupons:      services.NewCouponService(store.Coupons(), nil, logger),
		Products:     services.NewProductService(store.Products()),
		Fulfillment:  fulfillment,
		Verifier:     services.NewPaymentVerifier(cfg.Gateway.KeySecret, store, orders, logger),
		Sessions:     services.NewSessionService(cfg.JWTSecret),
		CarrierToken: cfg.Carrier.WebhookToken,
		Health:       func() error { return database.Ping(db) },
		Logger:       logger,
		AccessLog:    true,
	})

	a.reconciler = worker.NewReconciliationWorker(fulfillment, worker.Config{
		Interval:    cfg.ReconcileInterval,
		StaleAfter:  cfg.ReconcileStaleAfter,
		MaxAttempts: cfg.ReconcileMaxAttempts,
	}, logger)
	return a, nil
}

// start launches the task consumer and the reconciliation worker. They stop when ctx is
// cancelled or shutdown is called.
func (a *application) start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.local != nil {
		a.local.Start(ctx)
	}
	if a.mq != nil {
		done, err := a.mq.Consume(ctx, a.handleMessage)
		if err != nil {
			a.cancel()
			return err
		}
		a.consumerDone = done
	}

	a.workerDone = make(chan struct{})
	go func() {
		defer close(a.workerDone)
		a.reconciler.Run(ctx)
	}()
	return nil
}

func (a *application) handleMessage(ctx context.Context, body []byte) error {
	task, err := services.DecodeTask(body)
	if err != nil {
		return fmt.Errorf("%w: %v", rabbitmq.ErrPoisonMessage, err)
	}
	return a.fulfillment.HandleTask(ctx, task)
}

// shutdown stops the HTTP server first so no new tasks are scheduled, then drains the
// workers and closes the broker connection.
func (a *application) shutdown() error {
	var errs []error
	if err := a.http.ShutdownWithTimeout(shutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("fiber shutdown: %w", err))
	}
	if a.local != nil {
		a.local.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumerDone != nil {
		<-a.consumerDone
	}
	if a.workerDone != nil {
		<-a.workerDone
	}
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// seedProducts loads a small demo catalog. Fixed ids keep repeated runs idempotent.
func seedProducts(ctx context.Context, repo repositories.ProductRepository, logger *zap.Logger) {
	products := []models.Product{
		{ID: "6b1f7a4e-2c0d-4f4b-9d59-0c3f8a1e7b01", Name: "Laptop", SKU: "LAP-001", Price: decimal.NewFromInt(54999), Stock: 10, WeightKg: decimal.RequireFromString("1.8")},
		{ID: "6b1f7a4e-2c0d-4f4b-9d59-0c3f8a1e7b02", Name: "Keyboard", SKU: "KEY-001", Price: decimal.NewFromInt(2499), Stock: 25, WeightKg: decimal.RequireFromString("0.9")},
		{ID: "6b1f7a4e-2c0d-4f4b-9d59-0c3f8a1e7b03", Name: "Mouse", SKU: "MOU-001", Price: decimal.NewFromInt(799), Stock: 50, WeightKg: decimal.RequireFromString("0.2")},
	}

	for i := range products {
		if err := repo.Upsert(ctx, &products[i]); err != nil {
			logger.Error("failed to seed product", zap.String("name", products[i].Name), zap.Error(err))
			continue
		}
		logger.Info("seeded product", zap.String("name", products[i].Name), zap.String("id", products[i].ID))
	}
}
