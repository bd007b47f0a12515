package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// Server envuelve http.Server con timeouts sanos y shutdown ordenado.
type Server struct {
	srv *http.Server
}

// NewServer construye el server. Los timeouts evitan que conexiones colgadas
// acumulen goroutines.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start bloquea hasta que el server termine. http.ErrServerClosed (shutdown
// ordenado) no es un error.
func (s *Server) Start() error {
	logger.Named("http").Info("server listening", logger.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drena las conexiones en curso dentro del deadline del contexto.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Named("http").Info("server shutting down")
	return s.srv.Shutdown(ctx)
}
