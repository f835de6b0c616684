package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SEMINAR_API_BASE_URL", "https://messaging.example.com")
	t.Setenv("SEMINAR_API_KEY", "test-key")
	t.Setenv("SEMINAR_PROJECT_ID", "proj-1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "seminar_confirmation", cfg.ConfirmTemplate)
	assert.Equal(t, "3", cfg.TemplateVersion)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SEMINAR_PORT", "9090")
	t.Setenv("SEMINAR_LOG_LEVEL", "debug")
	t.Setenv("SEMINAR_EXPORT_BUCKET", "endpoint-exports")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "endpoint-exports", cfg.ExportBucket)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("SEMINAR_API_BASE_URL", "")
	t.Setenv("SEMINAR_API_KEY", "")
	t.Setenv("SEMINAR_PROJECT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEMINAR_API_KEY")
}
