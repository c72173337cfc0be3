package httpserver

import (
	"context"
	"testing"
	"time"

	"github.com/foxseedlab/segscribe/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = "127.0.0.1:0"
	srv := NewServer(cfg, NewHandlers(cfg, &fakeProcessor{}, nil), metrics.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = "256.0.0.1:bad"
	srv := NewServer(cfg, NewHandlers(cfg, &fakeProcessor{}, nil), metrics.NewRegistry())

	err := srv.Run(context.Background())
	assert.Error(t, err)
}
