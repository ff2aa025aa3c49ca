package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Vector/vector-integration-hub/redis/config"
	"github.com/Vector/vector-integration-hub/redis/tasks"
)

// Client wraps asynq client functionality. It implements the task enqueuer
// seam the integrations service uses for cache warming and purge sweeps.
type Client struct {
	client *asynq.Client
	cfg    *config.RedisConfig
}

// NewClient creates a new task queue client with the provided configuration.
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Client{
		client: client,
		cfg:    cfg,
	}, nil
}

// EnqueueTask enqueues a task with the given type and payload.
func (c *Client) EnqueueTask(ctx context.Context, taskType string, payload []byte, opts ...asynq.Option) error {
	task := asynq.NewTask(taskType, payload)
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// EnqueueWarm schedules a cache-warm fetch for the integration.
func (c *Client) EnqueueWarm(ctx context.Context, integration string, credentials map[string]any, subType string) error {
	payload, err := json.Marshal(tasks.WarmPayload{
		Integration: integration,
		Credentials: credentials,
		SubType:     subType,
	})
	if err != nil {
		return fmt.Errorf("failed to encode warm payload: %w", err)
	}

	return c.EnqueueTask(ctx, tasks.TypeWarmIntegration, payload,
		asynq.Queue(tasks.PriorityLow),
		asynq.MaxRetry(c.cfg.MaxRetries))
}

// EnqueuePurge schedules a delayed purge sweep for the tuple.
func (c *Client) EnqueuePurge(ctx context.Context, integration, user, org string) error {
	payload, err := json.Marshal(tasks.PurgePayload{
		Integration: integration,
		UserID:      user,
		OrgID:       org,
	})
	if err != nil {
		return fmt.Errorf("failed to encode purge payload: %w", err)
	}

	return c.EnqueueTask(ctx, tasks.TypePurgeIntegration, payload,
		asynq.Queue(tasks.PriorityCritical),
		asynq.ProcessIn(time.Minute),
		asynq.MaxRetry(c.cfg.MaxRetries))
}

// Close closes the task queue client connection.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close task queue client: %w", err)
	}

	return nil
}
