package main

import (
	"context"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beautystore/backend/internal/config"
	httpdelivery "github.com/beautystore/backend/internal/delivery/http"
	"github.com/beautystore/backend/internal/entity"
	"github.com/beautystore/backend/internal/notification"
	"github.com/beautystore/backend/internal/repository"
	mongorepo "github.com/beautystore/backend/internal/repository/mongo"
	"github.com/beautystore/backend/internal/service"
	"github.com/beautystore/backend/internal/signature"
	"github.com/beautystore/backend/internal/storage"
	"github.com/beautystore/backend/internal/worker"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Database ---
	db, disconnect, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "err", err)
		os.Exit(1)
	}
	defer disconnect(context.Background())

	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		slog.Error("Failed to ensure indexes", "err", err)
		os.Exit(1)
	}

	productRepo := mongorepo.NewProductRepository(db)
	orderRepo := mongorepo.NewOrderRepository(db)
	eventRepo := mongorepo.NewPaymentEventRepository(db)
	userRepo := mongorepo.NewUserRepository(db)

	if err := seed(ctx, productRepo, userRepo); err != nil {
		slog.Error("Failed to seed initial data", "err", err)
		os.Exit(1)
	}

	// --- Kafka ---
	publisher, err := notification.NewKafkaPublisher(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("Failed to create Kafka publisher", "err", err)
		os.Exit(1)
	}
	defer publisher.Close()
	notifier := notification.NewPublisherNotifier(publisher, cfg.ConfirmationTopic)

	// --- Object storage ---
	receipts, err := storage.NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Endpoint)
	if err != nil {
		slog.Error("Failed to create S3 store", "err", err)
		os.Exit(1)
	}

	// --- Services ---
	dispatcher := worker.NewBackground(30 * time.Second)
	defer dispatcher.Close()

	orderSvc := service.NewOrderService(orderRepo, productRepo)
	productSvc := service.NewProductService(productRepo)
	paymentSvc := service.NewPaymentService(
		orderSvc,
		eventRepo,
		userRepo,
		signature.NewVerifier(cfg.WebhookSecret),
		receipts,
		notifier,
		dispatcher,
	)

	// --- HTTP API ---
	mux := stdhttp.NewServeMux()
	httpdelivery.NewHandler(orderSvc, paymentSvc, productSvc).RegisterRoutes(mux)

	httpServer := &stdhttp.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpdelivery.EnableCORS(mux),
	}

	go func() {
		slog.Info("🚀 HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "err", err)
	}
}

// seed loads a starter catalog and demo accounts into empty collections so a
// fresh environment is usable immediately. Existing data is left alone.
func seed(ctx context.Context, products repository.ProductRepository, users repository.UserRepository) error {
	now := time.Now().UTC()

	if err := products.Seed(ctx, []entity.Product{
		{ID: "prod-serum-vitc", Name: "Vitamin C Serum", Description: "Brightening serum with 15% vitamin C", Price: 29.99, Currency: "USD", Stock: 50, IsActive: true, Category: "skincare", CreatedAt: now, UpdatedAt: now},
		{ID: "prod-cream-night", Name: "Night Repair Cream", Description: "Rich overnight moisturizer", Price: 35.50, Currency: "USD", Stock: 40, IsActive: true, Category: "skincare", CreatedAt: now, UpdatedAt: now},
		{ID: "prod-lipstick-red", Name: "Matte Lipstick Ruby", Description: "Long-wear matte finish", Price: 18.00, Currency: "USD", Stock: 80, IsActive: true, Category: "makeup", CreatedAt: now, UpdatedAt: now},
		{ID: "prod-shampoo-argan", Name: "Argan Oil Shampoo", Description: "Sulfate-free nourishing shampoo", Price: 14.25, Currency: "USD", Stock: 60, IsActive: true, Category: "haircare", CreatedAt: now, UpdatedAt: now},
		{ID: "prod-mask-clay", Name: "Purifying Clay Mask", Description: "Deep-cleansing kaolin mask", Price: 22.90, Currency: "USD", Stock: 35, IsActive: true, Category: "skincare", CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		return err
	}

	return users.Seed(ctx, []entity.User{
		{ID: "usr-demo", Email: "demo@beautystore.dev", Name: "Demo Customer", Role: entity.RoleUser},
		{ID: "usr-admin", Email: "admin@beautystore.dev", Name: "Store Admin", Role: entity.RoleAdmin},
	})
}
