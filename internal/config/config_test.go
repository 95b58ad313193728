package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/midbel/xsltproof/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load(nil)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "development", cfg.LogMode)
	assert.True(t, cfg.SpinnerEnabled)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("XSLTPROOF_HTTP_ADDR", ":9090")
	t.Setenv("XSLTPROOF_MAX_INPUT_BYTES", "1024")
	t.Setenv("XSLTPROOF_SPINNER", "false")

	cfg := config.Load(nil)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 1024, cfg.MaxInputBytes)
	assert.False(t, cfg.SpinnerEnabled)
}

func TestGetEnvAsIntFallsBackOnBadValue(t *testing.T) {
	t.Setenv("XSLTPROOF_TEST_INT", "not-a-number")
	assert.Equal(t, 42, config.GetEnvAsInt("XSLTPROOF_TEST_INT", 42, nil))
}

func TestApplyOverlayMergesSetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":7000\"\nlog_mode: \"prod\"\n"), 0o644))

	cfg := config.Load(nil)
	merged := config.ApplyOverlay(cfg, path, nil)
	assert.Equal(t, ":7000", merged.HTTPAddr)
	assert.Equal(t, "prod", merged.LogMode)
	assert.Equal(t, cfg.MaxInputBytes, merged.MaxInputBytes)
}

func TestApplyOverlayIgnoresMissingFile(t *testing.T) {
	cfg := config.Load(nil)
	merged := config.ApplyOverlay(cfg, "/nonexistent/overlay.yaml", nil)
	assert.Equal(t, cfg, merged)
}
