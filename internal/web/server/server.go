// Package server runs the HTTP server and shuts it down gracefully.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server wraps http.Server with the service's timeouts
type Server struct {
	httpServer *http.Server
	config     *Config

	mu       sync.Mutex
	listener net.Listener
}

// Config holds server configuration
type Config struct {
	// Address is the listen address, e.g. ":8000"
	Address string
	Handler http.Handler

	// CertFile and KeyFile enable TLS when both are set
	CertFile string
	KeyFile  string

	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int
}

// DefaultConfig returns the production defaults
func DefaultConfig(handler http.Handler) *Config {
	return &Config{
		Address:           ":8000",
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// New creates a server from config
func New(config *Config) (*Server, error) {
	if config == nil {
		return nil, errors.New("server config cannot be nil")
	}
	if config.Handler == nil {
		return nil, errors.New("handler cannot be nil")
	}
	if (config.CertFile == "") != (config.KeyFile == "") {
		return nil, errors.New("tls requires both cert and key files")
	}

	httpServer := &http.Server{
		Addr:              config.Address,
		Handler:           config.Handler,
		ReadTimeout:       config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		MaxHeaderBytes:    config.MaxHeaderBytes,
	}
	if config.CertFile != "" {
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			NextProtos: []string{"h2", "http/1.1"},
		}
	}

	return &Server{httpServer: httpServer, config: config}, nil
}

// Start listens on the configured address and serves until Shutdown. It
// returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	if s.config.CertFile != "" {
		return s.httpServer.ServeTLS(listener, s.config.CertFile, s.config.KeyFile)
	}
	return s.httpServer.Serve(listener)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address once listening, else the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}
