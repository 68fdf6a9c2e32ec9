package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewValidates(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Address: ":0"})
	assert.Error(t, err)

	cfg := DefaultConfig(http.NotFoundHandler())
	cfg.CertFile = "cert.pem"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestServerStartAndShutdown(t *testing.T) {
	cfg := DefaultConfig(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	}))
	cfg.Address = "127.0.0.1:0"
	srv, err := New(cfg)
	require.NoError(t, err)

	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start() }()

	require.Eventually(t, func() bool { return srv.Addr() != cfg.Address }, time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.ErrorIs(t, <-errChan, http.ErrServerClosed)
}

func TestGracefulShutdownRunsHooks(t *testing.T) {
	cfg := DefaultConfig(http.NotFoundHandler())
	cfg.Address = "127.0.0.1:0"
	srv, err := New(cfg)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	gs := NewGracefulShutdown(srv, time.Second, zap.New(core))

	var order []string
	gs.RegisterHook("hub", func(context.Context) error {
		order = append(order, "hub")
		return nil
	})
	gs.RegisterHook("redis", func(context.Context) error {
		order = append(order, "redis")
		return errors.New("already closed")
	})
	gs.RegisterHook("db", func(context.Context) error {
		order = append(order, "db")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != cfg.Address }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	assert.Equal(t, []string{"hub", "redis", "db"}, order)
	assert.Equal(t, 1, logs.FilterMessage("shutdown hook failed").Len())
	assert.NoError(t, gs.Wait())
	assert.NoError(t, gs.Shutdown())
}

func TestGracefulShutdownListenError(t *testing.T) {
	cfg := DefaultConfig(http.NotFoundHandler())
	cfg.Address = "256.0.0.1:99999"
	srv, err := New(cfg)
	require.NoError(t, err)

	gs := NewGracefulShutdown(srv, time.Second, nil)
	err = gs.Run(context.Background())
	assert.Error(t, err)
}
