package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, StorageCloudinary, cfg.Storage.Provider)
	assert.Equal(t, AnalysisKafka, cfg.Analysis.Mode)
	assert.Equal(t, 1500*time.Millisecond, cfg.Analysis.Delay)
	assert.Equal(t, "cv-analysis-group", cfg.Kafka.GroupID)
	assert.Equal(t, 5*time.Minute, cfg.Analysis.SweepInterval)
	assert.Equal(t, 2*time.Minute, cfg.Analysis.PendingAge)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.App.AllowedOrigins)
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("app:\n  port: \"9000\"\nanalysis:\n  mode: inline\n  delay: 10ms\nstorage:\n  provider: gcs\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("APP_PORT", "9100")
	t.Setenv("ANALYSIS_SWEEP_INTERVAL", "30s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ALLOWED_ORIGINS", "https://talentsin.me,https://app.talentsin.me")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.App.Port)
	assert.Equal(t, AnalysisInline, cfg.Analysis.Mode)
	assert.Equal(t, 10*time.Millisecond, cfg.Analysis.Delay)
	assert.Equal(t, StorageGCS, cfg.Storage.Provider)
	assert.Equal(t, 30*time.Second, cfg.Analysis.SweepInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://talentsin.me", "https://app.talentsin.me"}, cfg.App.AllowedOrigins)
}
