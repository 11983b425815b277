package scheduler

import (
	"context"
	"fmt"
	"time"

	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// GenerationRunner executes the full generation pipeline for an artwork.
type GenerationRunner interface {
	Run(ctx context.Context, artworkID uuid.UUID) error
}

// MockupGenerator renders product mockups for a finished artwork.
type MockupGenerator interface {
	GenerateMockups(ctx context.Context, artworkID uuid.UUID, imageURL string) (map[string]string, error)
}

// OutboxSender delivers one notification outbox row.
type OutboxSender interface {
	Send(ctx context.Context, outboxID uuid.UUID) error
}

// ReconcileSweeper repairs orders for recent paid sessions.
type ReconcileSweeper interface {
	SweepRecentSessions(ctx context.Context) error
}

// Worker consumes the task queue and fans out to the domain services.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	generation GenerationRunner
	mockups    MockupGenerator
	outbox     OutboxSender
	reconcile  ReconcileSweeper
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, generation GenerationRunner, mockups MockupGenerator, outbox OutboxSender, reconcile ReconcileSweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		generation: generation,
		mockups:    mockups,
		outbox:     outbox,
		reconcile:  reconcile,
		log:        log,
	}

	mux.HandleFunc(TaskArtworkGenerate, w.handleArtworkGenerate)
	mux.HandleFunc(TaskMockupsGenerate, w.handleMockupsGenerate)
	mux.HandleFunc(TaskNotificationOutboxSend, w.handleNotificationOutboxSend)
	mux.HandleFunc(TaskOrdersReconcileSweep, w.handleOrdersReconcileSweep)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleArtworkGenerate(ctx context.Context, task *asynq.Task) error {
	if w.generation == nil {
		return nil
	}

	payload, err := ParseArtworkGeneratePayload(task)
	if err != nil {
		return err
	}
	artworkID, err := uuid.Parse(payload.ArtworkID)
	if err != nil {
		return err
	}

	started := time.Now()
	if err := w.generation.Run(ctx, artworkID); err != nil {
		w.log.Error("generation task failed", "artwork_id", artworkID, "error", err)
		return err
	}
	w.log.Info("generation task finished", "artwork_id", artworkID, "duration", time.Since(started))
	return nil
}

func (w *Worker) handleMockupsGenerate(ctx context.Context, task *asynq.Task) error {
	if w.mockups == nil {
		return nil
	}

	payload, err := ParseMockupsGeneratePayload(task)
	if err != nil {
		return err
	}
	artworkID, err := uuid.Parse(payload.ArtworkID)
	if err != nil {
		return err
	}

	if _, err := w.mockups.GenerateMockups(ctx, artworkID, payload.ImageURL); err != nil {
		w.log.Error("mockup task failed", "artwork_id", artworkID, "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleNotificationOutboxSend(ctx context.Context, task *asynq.Task) error {
	if w.outbox == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxSendPayload(task)
	if err != nil {
		return err
	}
	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	return w.outbox.Send(ctx, outboxID)
}

func (w *Worker) handleOrdersReconcileSweep(ctx context.Context, _ *asynq.Task) error {
	if w.reconcile == nil {
		return nil
	}
	return w.reconcile.SweepRecentSessions(ctx)
}
