// Package workerrunner runs the background task worker mode of the
// integration hub.
package workerrunner

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/Vector/vector-integration-hub/integrations"
	"github.com/Vector/vector-integration-hub/pkg/encryption"
	"github.com/Vector/vector-integration-hub/redis"
	redisconfig "github.com/Vector/vector-integration-hub/redis/config"
	"github.com/Vector/vector-integration-hub/redis/tasks"
	"github.com/Vector/vector-integration-hub/runner"
)

var _ runner.Runner = (*WorkerRunner)(nil)

// WorkerRunner owns the asynq server processing warm and purge tasks.
type WorkerRunner struct {
	cfg    *runner.Config
	logger *zap.Logger
	store  *redis.Store
	server *redis.Server
	mux    *asynq.ServeMux
}

// New builds the worker run mode. The service it wires has no task
// enqueuer: a purge sweep running Disconnect must not schedule another
// sweep of itself.
func New(cfg *runner.Config) (*WorkerRunner, error) {
	if cfg.RunMode != runner.RunModeWorker {
		return nil, runner.ErrInvalidRunMode
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	redisCfg, err := redisconfig.NewRedisConfig()
	if err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}

	store, err := redis.NewStore(context.Background(), redisCfg)
	if err != nil {
		return nil, err
	}

	credOpts := []integrations.CredentialStoreOption{}

	if cfg.EncryptionKey != "" {
		cipher, err := encryption.New([]byte(cfg.EncryptionKey))
		if err != nil {
			_ = store.Close()

			return nil, fmt.Errorf("encryption key: %w", err)
		}

		credOpts = append(credOpts, integrations.WithCipher(cipher))
	}

	service := integrations.NewService(
		runner.NewRegistry(cfg),
		integrations.NewCredentialStore(store, logger, credOpts...),
		integrations.NewCache(store, logger),
		integrations.NewStateManager(store),
		logger,
		integrations.WithTelemetry(runner.Telemetry()),
	)

	server, err := redis.NewServer(redisCfg)
	if err != nil {
		_ = store.Close()

		return nil, err
	}

	handler := tasks.NewHandler(service, tasks.WithLogger(logger))

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeWarmIntegration, handler)
	mux.Handle(tasks.TypePurgeIntegration, handler)
	mux.Handle(tasks.TypeHealthCheck, handler)

	return &WorkerRunner{
		cfg:    cfg,
		logger: logger,
		store:  store,
		server: server,
		mux:    mux,
	}, nil
}

// Run starts the task server and blocks until the context is cancelled.
func (w *WorkerRunner) Run(ctx context.Context) error {
	if err := w.server.Start(ctx, w.mux); err != nil {
		return err
	}

	w.logger.Info("task worker started")

	<-ctx.Done()

	return w.server.Shutdown(context.Background())
}

// Close releases the Redis handle.
func (w *WorkerRunner) Close(context.Context) error {
	return w.store.Close()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
