package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Vector/vector-integration-hub/redis/config"
)

// Server wraps asynq server functionality for the background worker.
type Server struct {
	server *asynq.Server
	cfg    *config.RedisConfig
}

// NewServer creates a new task queue server with the provided configuration.
func NewServer(cfg *config.RedisConfig) (*Server, error) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			PoolSize:     10,
		},
		asynq.Config{
			Concurrency: cfg.Workers,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				if n >= cfg.MaxRetries {
					log.Printf("Task %s exhausted retries: %v", task.Type(), err)

					return -1 * time.Second
				}

				// Exponential backoff capped at the configured interval.
				delay := time.Duration(1<<uint(n)) * time.Second
				if delay > cfg.RetryInterval {
					delay = cfg.RetryInterval
				}

				return delay
			},
			Queues:         cfg.QueuePriorities,
			StrictPriority: true,
		},
	)

	return &Server{
		server: srv,
		cfg:    cfg,
	}, nil
}

// Start starts the server with the provided handler mux.
func (s *Server) Start(_ context.Context, mux *asynq.ServeMux) error {
	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight tasks.
func (s *Server) Shutdown(context.Context) error {
	s.server.Shutdown()

	return nil
}
