package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
)

// ShutdownHook releases a resource after the server has drained
type ShutdownHook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// GracefulShutdown runs a server until a signal arrives, then drains it and
// runs the registered hooks in order.
type GracefulShutdown struct {
	server  *Server
	timeout time.Duration
	signals []os.Signal
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []ShutdownHook

	once sync.Once
	done chan struct{}
	err  error
}

// NewGracefulShutdown creates a shutdown handler. A zero timeout means 30s.
func NewGracefulShutdown(server *Server, timeout time.Duration, logger *zap.Logger) *GracefulShutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GracefulShutdown{
		server:  server,
		timeout: timeout,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		logger:  logging.OrNop(logger),
		done:    make(chan struct{}),
	}
}

// RegisterHook adds a named hook
func (gs *GracefulShutdown) RegisterHook(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, ShutdownHook{Name: name, Fn: fn})
}

// Run serves until ctx is cancelled, a signal arrives or the server fails
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, gs.signals...)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		gs.logger.Info("server starting", zap.String("addr", gs.server.config.Address))
		if err := gs.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		gs.logger.Info("shutdown signal received")
		return gs.Shutdown()
	case err := <-errChan:
		_ = gs.Shutdown()
		return err
	}
}

// Shutdown drains the server then runs hooks. Hook failures are logged and
// do not stop later hooks. Safe to call more than once.
func (gs *GracefulShutdown) Shutdown() error {
	gs.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		if err := gs.server.Shutdown(ctx); err != nil {
			gs.err = fmt.Errorf("server shutdown error: %w", err)
			gs.logger.Error("server shutdown failed", zap.Error(err))
		}

		gs.mu.Lock()
		hooks := append([]ShutdownHook(nil), gs.hooks...)
		gs.mu.Unlock()

		for _, h := range hooks {
			if err := h.Fn(ctx); err != nil {
				gs.logger.Warn("shutdown hook failed", zap.String("hook", h.Name), zap.Error(err))
				continue
			}
			gs.logger.Debug("shutdown hook completed", zap.String("hook", h.Name))
		}

		gs.logger.Info("shutdown complete")
		close(gs.done)
	})

	<-gs.done
	return gs.err
}

// Wait blocks until shutdown has finished
func (gs *GracefulShutdown) Wait() error {
	<-gs.done
	return gs.err
}
