package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
)

// ListenAndServeWithShutdown serves until SIGINT or SIGTERM, or until
// Shutdown is called, then drains in-flight requests.
func (s *Server) ListenAndServeWithShutdown() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves plugin requests until ctx is done or Shutdown is called. When
// ctx ends, running polls get the configured shutdown timeout to finish.
// A clean stop returns nil.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, fmt.Sprint(s.cfg.Server.Port))

	// Listen before serving so Addr is known for port 0.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	hs := &http.Server{Handler: s.Handler()}

	s.mu.Lock()
	s.http = hs
	s.listener = listener
	s.mu.Unlock()

	served := make(chan error, 1)
	go func() {
		err := hs.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		served <- err
	}()

	s.log.Infof("listening on %s", listener.Addr())
	close(s.ready)

	select {
	case err := <-served:
		// Shutdown was called or Serve failed.
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Infof("shutting down, waiting up to %s for running requests", s.cfg.Server.ShutdownTimeout())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		s.log.Error("shutdown", err)
		return err
	}
	<-served
	s.log.Info("shutdown complete")
	return nil
}

// Shutdown stops accepting requests and waits for running ones until ctx
// ends. It is a no-op before the server has started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.http
	s.mu.Unlock()

	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

// Addr returns the listening address, or "" before the server has started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
