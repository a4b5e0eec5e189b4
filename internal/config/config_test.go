package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Env)
	assert.Equal(t, ContextStore, cfg.Settings.Context)
	assert.Equal(t, "sqlite", cfg.Settings.Driver)
	assert.Equal(t, 2*time.Second, cfg.Settings.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Reload.DrainTimeout)
}

func TestLoadConfig_File(t *testing.T) {
	dir := inTempDir(t)

	content := `
settings:
  context: env
  driver: memory
vendors:
  groq:
    base_url: "http://groq.local/v1"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ContextEnv, cfg.Settings.Context)
	assert.Equal(t, "memory", cfg.Settings.Driver)
	assert.Equal(t, "http://groq.local/v1", cfg.Vendor("groq").BaseURL)
	assert.Empty(t, cfg.Vendor("openai").BaseURL)
}

func TestLoadConfig_InvalidContext(t *testing.T) {
	inTempDir(t)
	t.Setenv("SETTINGS_CONTEXT", "browser")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
