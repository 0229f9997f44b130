// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keepalive serves the small HTTP endpoint hosting platforms and
// uptime monitors poll to decide the agent is alive.
//
// GET / answers with a plain-text banner. GET /healthz answers with a
// JSON document carrying the build version and uptime.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Config configures a Server.
type Config struct {
	// Address is the TCP listen address, e.g. ":3000". Required.
	Address string

	// Handler serves requests. Required; see NewHandler.
	Handler http.Handler

	// ShutdownTimeout defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// Server serves HTTP on a TCP listener until its context is cancelled.
type Server struct {
	address         string
	handler         http.Handler
	shutdownTimeout time.Duration
	logger          *slog.Logger

	// ready is closed once the listener is bound.
	ready chan struct{}
	// addr is valid after ready is closed.
	addr net.Addr
}

// NewServer creates a Server. It panics when Address or Handler is
// missing.
func NewServer(config Config) *Server {
	if config.Address == "" {
		panic("keepalive.Server: Address is required")
	}
	if config.Handler == nil {
		panic("keepalive.Server: Handler is required")
	}
	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:         config.Address,
		handler:         config.Handler,
		shutdownTimeout: timeout,
		logger:          logger.With("component", "keepalive"),
		ready:           make(chan struct{}),
	}
}

// Ready is closed once the server is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. Only valid after Ready is closed.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Serve blocks until ctx is cancelled, then stops accepting connections
// and waits up to the shutdown timeout for in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.logger.Info("keep-alive server listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("keep-alive server shutdown: %w", err)
	}
	s.logger.Info("keep-alive server stopped")
	return nil
}
