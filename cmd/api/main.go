package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawtrait_backend/internal/adapters"
	"pawtrait_backend/internal/adapters/storage"
	"pawtrait_backend/internal/artwork"
	"pawtrait_backend/internal/auth"
	"pawtrait_backend/internal/catalog"
	"pawtrait_backend/internal/email"
	"pawtrait_backend/internal/events"
	"pawtrait_backend/internal/fulfillment"
	genclient "pawtrait_backend/internal/generation/client"
	gensvc "pawtrait_backend/internal/generation/service"
	apphttp "pawtrait_backend/internal/http"
	"pawtrait_backend/internal/http/router"
	"pawtrait_backend/internal/notification"
	"pawtrait_backend/internal/order"
	"pawtrait_backend/internal/payment"
	"pawtrait_backend/internal/review"
	"pawtrait_backend/internal/review/policy"
	"pawtrait_backend/internal/scheduler"
	"pawtrait_backend/migrations"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/db"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage service for photo uploads and generated artwork (MinIO)
	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	ensureBucket(ctx, log, storageSvc, "source-photos", cfg.GetMinioBucketSourcePhotos())
	ensureBucket(ctx, log, storageSvc, "artwork-images", cfg.GetMinioBucketArtworkImages())
	ensureBucket(ctx, log, storageSvc, "artwork-mockups", cfg.GetMinioBucketArtworkMockups())
	log.Info(
		"storage service initialized",
		"sourcePhotosBucket", cfg.GetMinioBucketSourcePhotos(),
		"artworkImagesBucket", cfg.GetMinioBucketArtworkImages(),
		"artworkMockupsBucket", cfg.GetMinioBucketArtworkMockups(),
	)

	cat, err := catalog.Load(cfg.GetCatalogPath())
	if err != nil {
		log.Error("failed to load product catalog", "error", err, "path", cfg.GetCatalogPath())
		panic("failed to load product catalog: " + err.Error())
	}

	taskClient, closeTaskClient := initTaskClient(cfg, log)
	if closeTaskClient != nil {
		defer closeTaskClient()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule := auth.NewModule(cfg, log)

	reviewPolicy := policy.Policy{Enabled: cfg.IsHumanReviewEnabled()}
	artworkModule := artwork.NewModule(pool, eventBus, val, reviewPolicy, cfg, log)
	artworkModule.SetStorage(storageSvc, cfg.GetMinioBucketSourcePhotos())

	reviewModule := review.NewModule(pool, eventBus, val, log)
	paymentModule := payment.NewModule(cfg, log)
	orderModule := order.NewModule(pool, paymentModule.Client(), cat, eventBus, cfg, val, log)
	fulfillmentModule := fulfillment.NewModule(cfg, log)

	// Generation pipeline runner: used synchronously by admin regeneration;
	// full pipeline runs are executed by the worker binary.
	runner := gensvc.NewRunner(
		genclient.New(cfg, log),
		adapters.NewGenerationArtworkProgress(artworkModule.Service()),
		log,
	)
	runner.SetImageStore(adapters.NewGenerationImageStore(storageSvc), cfg.GetMinioBucketArtworkImages())

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.NewModule(pool, eventBus, sender, cat, cfg, log)

	// ========================================================================
	// Cross-Module Wiring
	// ========================================================================

	paymentModule.SetCheckoutCompletedHandler(orderModule.Service())

	artworkModule.Service().SetProofReviewOpener(adapters.NewReviewProofOpener(reviewModule.Service()))

	artworkReviewReader := adapters.NewArtworkReviewReader(artworkModule.Service())
	reviewModule.Service().SetArtworkReader(artworkReviewReader)
	reviewModule.Service().SetArtworkImageWriter(artworkReviewReader)
	reviewModule.Service().SetPlaceholderOrderCreator(orderModule.Service())
	reviewModule.Service().SetFulfillmentSubmitter(fulfillmentModule.Service())
	reviewModule.Service().SetRegenerator(adapters.NewReviewRegenerator(runner))

	orderModule.Service().SetFulfillmentSubmitter(adapters.NewOrderFulfillmentSubmitter(fulfillmentModule.Service(), artworkModule.Service()))
	orderModule.Service().SetArtworkSummaryReader(adapters.NewOrderArtworkSummary(artworkModule.Service()))

	fulfillmentModule.Service().SetArtworkMockupWriter(adapters.NewFulfillmentMockupWriter(artworkModule.Service()))
	fulfillmentModule.Service().SetOrderSync(adapters.NewFulfillmentOrderSync(orderModule.Service()))

	notificationModule.Dispatcher().SetUploadStateReader(adapters.NewNotificationUploadState(artworkModule.Service()))

	if taskClient != nil {
		artworkModule.Service().SetGenerationEnqueuer(taskClient)
		artworkModule.Service().SetMockupRequester(taskClient)
		reviewModule.Service().SetMockupRequester(taskClient)
		notificationModule.Dispatcher().SetSendEnqueuer(taskClient)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			artworkModule,
			reviewModule,
			paymentModule,
			orderModule,
			fulfillmentModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initTaskClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background tasks disabled")
		return nil, nil
	}

	taskClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		return nil, nil
	}

	return taskClient, func() {
		_ = taskClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
