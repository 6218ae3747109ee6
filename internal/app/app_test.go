package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPipeline/internal/config"
	"TrendPipeline/internal/logging"
)

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.Database.DSN = ""
	cfg.Redis.Addr = ""
	cfg.LLM.APIKey = ""
	cfg.Sources.Items = nil
	cfg.Scheduler.Enabled = false
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Auth.APISecret = "s3cret"
	cfg.Auth.SyncSecret = "sync"
	return cfg
}

func TestNewInMemory(t *testing.T) {
	t.Parallel()

	a, err := New(t.Context(), memoryConfig(), logging.New("error", "text"))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.db)
	assert.Nil(t, a.redis)
	assert.Nil(t, a.scheduler)

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/api/pipeline/opportunities/sync", nil)
	req.Header.Set("x-pipeline-secret", "sync")
	w = httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestNewRejectsUnknownRiskPolicy(t *testing.T) {
	t.Parallel()
	cfg := memoryConfig()
	cfg.Pipeline.RiskPolicy = "reckless"

	_, err := New(t.Context(), cfg, logging.New("error", "text"))
	require.Error(t, err)
}

func TestRunOnceWithoutSources(t *testing.T) {
	t.Parallel()

	a, err := New(t.Context(), memoryConfig(), logging.New("error", "text"))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	res, err := a.RunOnce(t.Context())
	require.NoError(t, err)
	assert.Zero(t, res.Sync.ClustersUpserted)
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	a, err := New(t.Context(), memoryConfig(), logging.New("error", "text"))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestOpenDatabaseRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := OpenDatabase(t.Context(), config.DatabaseConfig{})
	require.Error(t, err)
}
