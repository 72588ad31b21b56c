package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"observer_core/internal/api"
	"observer_core/internal/config"
	"observer_core/internal/identity"
	"observer_core/internal/sampler"
)

// Server управляет жизненным циклом HTTP-сервиса
type Server struct {
	config  *config.Config
	sampler *sampler.Sampler
	logger  *zap.Logger

	httpServer *http.Server
	listener   net.Listener

	ctx    context.Context
	cancel context.CancelFunc
}

// New создает сервер
func New(cfg *config.Config, provider sampler.HostStatsProvider, id identity.ServiceIdentity, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	smp := sampler.New(provider, logger)
	handler := api.NewHandler(logger, smp, id)

	return &Server{
		config:  cfg,
		sampler: smp,
		logger:  logger,
		httpServer: &http.Server{
			Handler:           api.NewRouter(handler, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start выполняет первичный замер CPU и только после этого начинает
// принимать запросы
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting server", zap.String("listen", s.config.ListenAddr))

	if err := s.sampler.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize sampler: %w", err)
	}

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = ln

	go s.serve()

	s.logger.Info("Server started successfully", zap.String("addr", ln.Addr().String()))
	return nil
}

// serve обслуживает соединения до остановки
func (s *Server) serve() {
	defer s.cancel()

	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTP server error", zap.Error(err))
	}
}

// Addr возвращает фактический адрес прослушивания
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop останавливает сервер, дожидаясь текущих запросов
func (s *Server) Stop() error {
	s.logger.Info("Stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.cancel()
	if err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// Done закрывается, когда сервер перестал обслуживать запросы
func (s *Server) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Wait ожидает завершения сервера
func (s *Server) Wait() {
	<-s.ctx.Done()
}
