package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"127.0.0.1:9669"}, cfg.Nebula.Addrs)
	assert.Equal(t, "corp_disclosure", cfg.Nebula.Space)
	assert.Equal(t, "graphd", cfg.Redis.KeyPrefix)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, "first", cfg.Worker.StockMismatchPolicy)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
nebula:
  addrs: ["10.0.0.1:9669", "10.0.0.2:9669"]
  space: corp_graph
worker:
  concurrency: 8
  stock_mismatch_policy: reject
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1:9669", "10.0.0.2:9669"}, cfg.Nebula.Addrs)
	assert.Equal(t, "corp_graph", cfg.Nebula.Space)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, "reject", cfg.Worker.StockMismatchPolicy)
	// Untouched sections keep defaults.
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEBULA_SPACE", "env_space")
	t.Setenv("WORKER_CONCURRENCY", "2")
	t.Setenv("WORKER_STOCK_MISMATCH_POLICY", "reject")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env_space", cfg.Nebula.Space)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, "reject", cfg.Worker.StockMismatchPolicy)
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	cfg := Default()
	cfg.Worker.StockMismatchPolicy = "panic"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Worker.Concurrency = 0
	assert.Error(t, cfg.Validate())
}
