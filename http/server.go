package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ServerConfig holds the listener settings. Timeouts are in seconds.
type ServerConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_sec"`
}

// DefaultServerConfig returns sensible listener settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		ReadTimeoutSec:  15,
		WriteTimeoutSec: 30,
		ShutdownSec:     10,
	}
}

// Server is the API front end.
type Server struct {
	cfg    ServerConfig
	logger *zap.Logger
	hub    *ProgressHub
	srv    *http.Server
}

// NewServer builds the router and wraps it with the middleware chain.
func NewServer(cfg ServerConfig, logger *zap.Logger, hub *ProgressHub) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handleHealth)
	mux.HandleFunc("/api/predict", handlePredict)
	mux.HandleFunc("/api/roi", handleROI)
	mux.HandleFunc("/api/models", handleModels)
	mux.HandleFunc("/api/history", handleHistory)
	mux.HandleFunc("/api/train", handleTrain)
	mux.HandleFunc("/api/train/status", handleTrainStatus)
	mux.HandleFunc("/api/train/history", handleTrainHistory)
	if hub != nil {
		mux.HandleFunc("/api/ws/training", hub.ServeWS)
	}

	handler := Chain(mux,
		Recovery(logger),
		Logger(logger),
		SecurityHeaders(),
		CORS(),
	)

	return &Server{
		cfg:    cfg,
		logger: logger,
		hub:    hub,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		},
	}
}

// Handler exposes the wrapped router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownSec)*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
