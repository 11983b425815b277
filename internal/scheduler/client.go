package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"pawtrait_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues background tasks. Its methods satisfy the narrow enqueuer
// interfaces the domain services declare, so modules depend on behavior, not
// on asynq.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueGeneration schedules a full pipeline run for an artwork.
// Generation failures are terminal (the artwork is marked failed and waits for
// an explicit retry), so the task must never be re-run by asynq.
func (c *Client) EnqueueGeneration(ctx context.Context, artworkID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewArtworkGenerateTask(ArtworkGeneratePayload{ArtworkID: artworkID.String()})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(0))
	return err
}

// RequestMockups schedules product-mockup rendering for a finished artwork.
// Single attempt: a failed render surfaces as a failed processing status, not
// as a queue retry.
func (c *Client) RequestMockups(ctx context.Context, artworkID uuid.UUID, imageURL string) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewMockupsGenerateTask(MockupsGeneratePayload{ArtworkID: artworkID.String(), ImageURL: imageURL})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(0))
	return err
}

// EnqueueOutboxSend schedules delivery of one claimed outbox row.
func (c *Client) EnqueueOutboxSend(ctx context.Context, outboxID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewNotificationOutboxSendTask(NotificationOutboxSendPayload{OutboxID: outboxID.String()})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// EnqueueReconcileSweep schedules one reconciliation sweep run.
func (c *Client) EnqueueReconcileSweep(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewOrdersReconcileSweepTask(), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
