package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, ".tarang", filepath.Base(cfg.DataDir))
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 2*time.Second, cfg.ClassifierTimeout)
	assert.Empty(t, cfg.ModelPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TARANG_DATA_DIR", "/tmp/test-tarang")
	t.Setenv("TARANG_MODEL_PATH", "/models/aq10.json")
	t.Setenv("TARANG_CLASSIFIER_TIMEOUT", "500ms")
	t.Setenv("TARANG_CACHE_MAX_ITEMS", "500")
	t.Setenv("TARANG_REPORT_BASE", "https://tarang.example")
	t.Setenv("TARANG_LOG_LEVEL", "debug")
	t.Setenv("TARANG_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-tarang", cfg.DataDir)
	assert.Equal(t, "/models/aq10.json", cfg.ModelPath)
	assert.Equal(t, 500*time.Millisecond, cfg.ClassifierTimeout)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, "https://tarang.example", cfg.ReportBase)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("TARANG_CACHE_MAX_ITEMS", "-4")
	t.Setenv("TARANG_CLASSIFIER_TIMEOUT", "soon")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 2*time.Second, cfg.ClassifierTimeout)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.tarang"}

	assert.Equal(t, "/home/user/.tarang/screening.db", cfg.ScreeningDBPath())
	assert.Equal(t, "/home/user/.tarang/reviews.db", cfg.ReviewDBPath())
	assert.Equal(t, "/home/user/.tarang/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "tarang")}

	require.NoError(t, cfg.EnsureDataDir())

	_, err := os.Stat(cfg.DataDir)
	assert.NoError(t, err)
	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}
