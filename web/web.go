// Package web hosts the HTTP server for the integration hub.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Vector/vector-integration-hub/web/handlers"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server is the hub's HTTP front.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer builds the router and server around the integration handlers.
func NewServer(cfg Config, handler *handlers.IntegrationHandler, logger *zap.Logger) *Server {
	r := mux.NewRouter()

	r.Use(requestLogger(logger))
	r.Use(cors(cfg.AllowedOrigins))

	r.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	handler.Register(r)

	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown failed", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
