// Package tasks provides the background task handlers for the integration
// hub worker.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// IntegrationService is the slice of the orchestration layer the worker
// needs: forced data loads for cache warming and idempotent purges.
type IntegrationService interface {
	LoadData(ctx context.Context, integration string, credentials map[string]any, force bool, subType string) (any, error)
	Disconnect(ctx context.Context, integration, user, org string) error
}

// TaskHandler handles processing of background tasks.
type TaskHandler interface {
	ProcessTask(ctx context.Context, task *asynq.Task) error
}

// Handler implements TaskHandler on top of the integration service.
type Handler struct {
	service     IntegrationService
	logger      *zap.Logger
	taskTimeout time.Duration
}

// HandlerOption is a function that configures a Handler.
type HandlerOption func(*Handler)

// WithTaskTimeout sets the timeout for task processing.
func WithTaskTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.taskTimeout = timeout
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a new task handler with the provided options.
func NewHandler(service IntegrationService, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:     service,
		logger:      zap.NewNop(),
		taskTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ProcessTask processes a task based on its type.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ctx, cancel := context.WithTimeout(ctx, h.taskTimeout)
	defer cancel()

	switch task.Type() {
	case TypeWarmIntegration:
		return h.processWarmTask(ctx, task)
	case TypePurgeIntegration:
		return h.processPurgeTask(ctx, task)
	case TypeHealthCheck:
		return nil // Health check task always succeeds
	default:
		return fmt.Errorf("unknown task type: %s", task.Type())
	}
}

func (h *Handler) processWarmTask(ctx context.Context, task *asynq.Task) error {
	var payload WarmPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid warm payload: %w", err)
	}

	if payload.Integration == "" {
		return fmt.Errorf("warm payload missing integration")
	}

	if _, err := h.service.LoadData(ctx, payload.Integration, payload.Credentials, true, payload.SubType); err != nil {
		return fmt.Errorf("cache warm for %s failed: %w", payload.Integration, err)
	}

	h.logger.Info("cache warmed",
		zap.String("integration", payload.Integration),
		zap.String("sub_type", payload.SubType))

	return nil
}

func (h *Handler) processPurgeTask(ctx context.Context, task *asynq.Task) error {
	var payload PurgePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid purge payload: %w", err)
	}

	if err := h.service.Disconnect(ctx, payload.Integration, payload.UserID, payload.OrgID); err != nil {
		return fmt.Errorf("purge sweep for %s failed: %w", payload.Integration, err)
	}

	h.logger.Info("purge sweep completed",
		zap.String("integration", payload.Integration),
		zap.String("org_id", payload.OrgID),
		zap.String("user_id", payload.UserID))

	return nil
}
