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
	"pawtrait_backend/internal/catalog"
	"pawtrait_backend/internal/email"
	"pawtrait_backend/internal/events"
	"pawtrait_backend/internal/fulfillment"
	genclient "pawtrait_backend/internal/generation/client"
	gensvc "pawtrait_backend/internal/generation/service"
	"pawtrait_backend/internal/notification"
	"pawtrait_backend/internal/order"
	"pawtrait_backend/internal/payment"
	"pawtrait_backend/internal/review"
	"pawtrait_backend/internal/review/policy"
	"pawtrait_backend/internal/scheduler"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/db"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	sender := email.NewSender(cfg)
	val := validator.New()

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	cat, err := catalog.Load(cfg.GetCatalogPath())
	if err != nil {
		log.Error("failed to load product catalog", "error", err, "path", cfg.GetCatalogPath())
		panic("failed to load product catalog: " + err.Error())
	}

	taskClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		panic("failed to initialize task queue client: " + err.Error())
	}
	defer func() { _ = taskClient.Close() }()

	// ========================================================================
	// Domain services (same graph as the API, without HTTP registration)
	// ========================================================================

	reviewPolicy := policy.Policy{Enabled: cfg.IsHumanReviewEnabled()}
	artworkModule := artwork.NewModule(pool, eventBus, val, reviewPolicy, cfg, log)
	artworkModule.SetStorage(storageSvc, cfg.GetMinioBucketSourcePhotos())

	reviewModule := review.NewModule(pool, eventBus, val, log)
	paymentModule := payment.NewModule(cfg, log)
	orderModule := order.NewModule(pool, paymentModule.Client(), cat, eventBus, cfg, val, log)
	fulfillmentModule := fulfillment.NewModule(cfg, log)

	runner := gensvc.NewRunner(
		genclient.New(cfg, log),
		adapters.NewGenerationArtworkProgress(artworkModule.Service()),
		log,
	)
	runner.SetImageStore(adapters.NewGenerationImageStore(storageSvc), cfg.GetMinioBucketArtworkImages())

	notificationModule := notification.NewModule(pool, eventBus, sender, cat, cfg, log)

	artworkModule.Service().SetProofReviewOpener(adapters.NewReviewProofOpener(reviewModule.Service()))
	artworkModule.Service().SetGenerationEnqueuer(taskClient)
	artworkModule.Service().SetMockupRequester(taskClient)

	artworkReviewReader := adapters.NewArtworkReviewReader(artworkModule.Service())
	reviewModule.Service().SetArtworkReader(artworkReviewReader)
	reviewModule.Service().SetArtworkImageWriter(artworkReviewReader)
	reviewModule.Service().SetPlaceholderOrderCreator(orderModule.Service())
	reviewModule.Service().SetFulfillmentSubmitter(fulfillmentModule.Service())
	reviewModule.Service().SetMockupRequester(taskClient)
	reviewModule.Service().SetRegenerator(adapters.NewReviewRegenerator(runner))

	orderModule.Service().SetFulfillmentSubmitter(adapters.NewOrderFulfillmentSubmitter(fulfillmentModule.Service(), artworkModule.Service()))
	orderModule.Service().SetArtworkSummaryReader(adapters.NewOrderArtworkSummary(artworkModule.Service()))

	fulfillmentModule.Service().SetArtworkMockupWriter(adapters.NewFulfillmentMockupWriter(artworkModule.Service()))
	fulfillmentModule.Service().SetOrderSync(adapters.NewFulfillmentOrderSync(orderModule.Service()))

	notificationModule.Dispatcher().SetSendEnqueuer(taskClient)
	notificationModule.Dispatcher().SetUploadStateReader(adapters.NewNotificationUploadState(artworkModule.Service()))

	// ========================================================================
	// Task processing
	// ========================================================================

	sweeper := scheduler.NewSweeper(notificationModule.Dispatcher(), taskClient, log)
	go sweeper.Run(ctx)

	worker, err := scheduler.NewWorker(
		cfg,
		runner,
		fulfillmentModule.Service(),
		notificationModule.Dispatcher(),
		adapters.NewSchedulerReconcileSweeper(orderModule.Service()),
		log,
	)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
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
