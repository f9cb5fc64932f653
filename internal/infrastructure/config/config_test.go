package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconly/reconcile-backend/internal/infrastructure/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads a full config file", func(t *testing.T) {
		path := writeConfig(t, `
matching:
  threshold: 0.8
  close_amount_tolerance: "2.50"
  bucket_width: "25.00"
  cross_product_limit: 5000
storage:
  database_path: /tmp/recon-test.db
api:
  port: 9090
  allowed_origins:
    - http://localhost:4000
observability:
  logging:
    level: debug
    format: json
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, 0.8, cfg.Matching.Threshold)
		assert.Equal(t, "2.50", cfg.Matching.CloseAmountTolerance)
		assert.Equal(t, "25.00", cfg.Matching.BucketWidth)
		assert.Equal(t, 5000, cfg.Matching.CrossProductLimit)
		assert.Equal(t, "/tmp/recon-test.db", cfg.Storage.DatabasePath)
		assert.Equal(t, 9090, cfg.API.Port)
		assert.Equal(t, []string{"http://localhost:4000"}, cfg.API.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	})

	t.Run("expands environment variables", func(t *testing.T) {
		t.Setenv("RECONCILE_TEST_DB", "/var/data/recon.db")
		path := writeConfig(t, `
storage:
  database_path: ${RECONCILE_TEST_DB}
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/var/data/recon.db", cfg.Storage.DatabasePath)
	})

	t.Run("sparse file gets defaults", func(t *testing.T) {
		path := writeConfig(t, `
matching:
  threshold: 0.9
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, 0.9, cfg.Matching.Threshold)
		assert.Equal(t, "1.00", cfg.Matching.CloseAmountTolerance)
		assert.Equal(t, 10000, cfg.Matching.CrossProductLimit)
		assert.Equal(t, "reconcile.db", cfg.Storage.DatabasePath)
		assert.Equal(t, 8080, cfg.API.Port)
		assert.NotEmpty(t, cfg.API.AllowedOrigins)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := config.Load("/does/not/exist.yaml")
		assert.Error(t, err)
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("reads RECONCILE_ variables", func(t *testing.T) {
		t.Setenv("RECONCILE_THRESHOLD", "0.6")
		t.Setenv("RECONCILE_CLOSE_TOLERANCE", "5.00")
		t.Setenv("RECONCILE_DB_PATH", "/tmp/env.db")
		t.Setenv("RECONCILE_API_PORT", "7070")

		cfg := config.LoadFromEnv()
		assert.Equal(t, 0.6, cfg.Matching.Threshold)
		assert.Equal(t, "5.00", cfg.Matching.CloseAmountTolerance)
		assert.Equal(t, "/tmp/env.db", cfg.Storage.DatabasePath)
		assert.Equal(t, 7070, cfg.API.Port)
	})

	t.Run("falls back to defaults", func(t *testing.T) {
		cfg := config.LoadFromEnv()
		assert.Equal(t, 0.75, cfg.Matching.Threshold)
		assert.Equal(t, "reconcile.db", cfg.Storage.DatabasePath)
	})
}

func TestLoadOrEnvWithPath(t *testing.T) {
	t.Run("prefers the file", func(t *testing.T) {
		path := writeConfig(t, "matching:\n  threshold: 0.85\n")
		cfg := config.LoadOrEnvWithPath(path)
		assert.Equal(t, 0.85, cfg.Matching.Threshold)
	})

	t.Run("falls back to env when the file is absent", func(t *testing.T) {
		t.Setenv("RECONCILE_THRESHOLD", "0.55")
		cfg := config.LoadOrEnvWithPath("/nope/config.yaml")
		assert.Equal(t, 0.55, cfg.Matching.Threshold)
	})
}
