package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeindex/internal/config"
	"tradeindex/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "trade.db")
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, logging.Discard())
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.FileExists(t, cfg.Database.Path)
}

func TestServeReportsListenError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Addr = "127.0.0.1:-1"

	err := serve(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestServeFailsOnMissingLookup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lookups.Agriculture = filepath.Join(t.TempDir(), "missing.json")

	assert.Error(t, serve(context.Background(), cfg, logging.Discard()))
}
