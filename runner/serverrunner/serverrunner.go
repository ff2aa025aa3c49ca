// Package serverrunner runs the HTTP server mode of the integration hub.
package serverrunner

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Vector/vector-integration-hub/integrations"
	"github.com/Vector/vector-integration-hub/pkg/encryption"
	"github.com/Vector/vector-integration-hub/redis"
	redisconfig "github.com/Vector/vector-integration-hub/redis/config"
	"github.com/Vector/vector-integration-hub/runner"
	"github.com/Vector/vector-integration-hub/web"
	"github.com/Vector/vector-integration-hub/web/handlers"
)

var _ runner.Runner = (*ServerRunner)(nil)

// ServerRunner owns the HTTP server and its Redis-backed dependencies.
type ServerRunner struct {
	cfg    *runner.Config
	logger *zap.Logger
	store  *redis.Store
	queue  *redis.Client
	server *web.Server
}

// New builds the server run mode: Redis store, task queue client, the
// integration service and the HTTP server around it.
func New(cfg *runner.Config) (*ServerRunner, error) {
	if cfg.RunMode != runner.RunModeServer {
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

	queue, err := redis.NewClient(redisCfg)
	if err != nil {
		_ = store.Close()

		return nil, err
	}

	credOpts := []integrations.CredentialStoreOption{}

	if cfg.EncryptionKey != "" {
		cipher, err := encryption.New([]byte(cfg.EncryptionKey))
		if err != nil {
			_ = store.Close()
			_ = queue.Close()

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
		integrations.WithTaskEnqueuer(queue),
	)

	handler := handlers.NewIntegrationHandler(service, logger)

	server := web.NewServer(web.Config{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
	}, handler, logger)

	return &ServerRunner{
		cfg:    cfg,
		logger: logger,
		store:  store,
		queue:  queue,
		server: server,
	}, nil
}

// Run serves HTTP until the context is cancelled.
func (s *ServerRunner) Run(ctx context.Context) error {
	return s.server.Start(ctx)
}

// Close releases the Redis handles.
func (s *ServerRunner) Close(context.Context) error {
	return multierr.Combine(s.queue.Close(), s.store.Close())
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
